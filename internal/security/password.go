package security

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// dummyPassword backs the comparison run for unknown accounts
const dummyPassword = "disclosure-service-dummy-password"

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// passwordBytes returns the bcrypt input for plain. Inputs longer than bcrypt
// accepts are replaced by their base64 encoded SHA-256 digest.
func passwordBytes(plain string) []byte {
	if len(plain) <= maxPasswordBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Hasher hashes and verifies passwords with bcrypt, running at most a fixed
// number of hash computations at once.
type Hasher struct {
	cost      int
	sem       *semaphore.Weighted
	dummyHash []byte
}

// NewHasher creates a hasher with the bcrypt cost and concurrency limit
func NewHasher(cost, concurrency int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{
		cost:      cost,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		dummyHash: dummy,
	}, nil
}

// Hash returns the bcrypt hash of plain
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword(passwordBytes(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether plain matches hash. A mismatch is not an error.
func (h *Hasher) Compare(ctx context.Context, hash, plain string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), passwordBytes(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// CompareDummy spends the same work as Compare against a hash that never matches,
// so lookups of unknown accounts take as long as wrong passwords.
func (h *Hasher) CompareDummy(ctx context.Context, plain string) error {
	_, err := h.Compare(ctx, string(h.dummyHash), plain+"\x00")
	return err
}
