package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"

	DefaultMaxUsers = 20
)

// Enterprise represents a tenant organization owning users, disclosures and configuration
type Enterprise struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string     `json:"name" gorm:"type:varchar(200);not null"`
	Code            string     `json:"code" gorm:"type:varchar(100);uniqueIndex"`
	LicenseKey      string     `json:"licenseKey" gorm:"type:varchar(200)"`
	LicenseExpireAt *time.Time `json:"licenseExpireAt,omitempty"`
	Status          string     `json:"status" gorm:"type:varchar(20);index"`
	MaxUsers        int        `json:"maxUsers"`
	ContactName     string     `json:"contactName"`
	ContactEmail    string     `json:"contactEmail"`
	ContactPhone    string     `json:"contactPhone"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// EnterpriseSummary is the list view of an enterprise
type EnterpriseSummary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	Status          string     `json:"status"`
	MaxUsers        int        `json:"maxUsers"`
	LicenseExpireAt *time.Time `json:"licenseExpireAt,omitempty"`
}

// IsActive reports whether the enterprise may be used
func (e *Enterprise) IsActive() bool {
	return e.Status == StatusActive
}

// Summary returns the list view of the enterprise
func (e *Enterprise) Summary() EnterpriseSummary {
	return EnterpriseSummary{
		ID:              e.ID,
		Name:            e.Name,
		Code:            e.Code,
		Status:          e.Status,
		MaxUsers:        e.MaxUsers,
		LicenseExpireAt: e.LicenseExpireAt,
	}
}

// Clone returns a deep copy
func (e *Enterprise) Clone() *Enterprise {
	out := *e
	out.LicenseExpireAt = cloneTime(e.LicenseExpireAt)
	return &out
}

// NewLicenseKey derives a license key from the enterprise code and a random suffix
func NewLicenseKey(code string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("LIC-%s-%s", code, strings.ToUpper(suffix))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
