package jwtutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess = "access"
	TokenTypeReset  = "password_reset"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
	ResetTTL        time.Duration
}

// Subject is the identity encoded into a token
type Subject struct {
	UserID       string
	Email        string
	Role         string
	EnterpriseID string
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	EnterpriseID string `json:"enterpriseId"`
	Type         string `json:"type"`
	// Fingerprint ties a reset token to the password hash it was issued against.
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateAccessToken creates a session token for the subject
func (j *JWTUtil) GenerateAccessToken(sub Subject) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}
	ttl := time.Duration(j.config.ExpirationHours) * time.Hour
	return j.sign(sub, TokenTypeAccess, "", ttl)
}

// GenerateResetToken creates a short-lived password reset token bound to the current password hash
func (j *JWTUtil) GenerateResetToken(sub Subject, passwordHash string) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}
	ttl := j.config.ResetTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return j.sign(sub, TokenTypeReset, PasswordFingerprint(passwordHash), ttl)
}

func (j *JWTUtil) sign(sub Subject, tokenType, fingerprint string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:       sub.UserID,
		Email:        sub.Email,
		Role:         sub.Role,
		EnterpriseID: sub.EnterpriseID,
		Type:         tokenType,
		Fingerprint:  fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	signingKey := j.config.SigningKey

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// PasswordFingerprint returns a short digest of a password hash
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// NewRefreshToken returns an opaque random token. It is not tracked server side.
func NewRefreshToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
