package model

import "time"

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleResearcher = "RESEARCHER"
)

// User represents an account belonging to one enterprise
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID string     `json:"enterpriseId" gorm:"type:varchar(36);uniqueIndex:idx_users_enterprise_email"`
	Email        string     `json:"email" gorm:"type:varchar(200);uniqueIndex:idx_users_enterprise_email"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255)"`
	Name         string     `json:"name" gorm:"type:varchar(200)"`
	Role         string     `json:"role" gorm:"type:varchar(20)"`
	Status       string     `json:"status" gorm:"type:varchar(20)"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// UserView is the public representation of a user
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsAdminRole reports whether the role bypasses author-level restrictions
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// ValidRole reports whether role is a known role
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleResearcher:
		return true
	}
	return false
}

// IsActive reports whether the user may sign in
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// View returns the public representation of the user
func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Clone returns a deep copy
func (u *User) Clone() *User {
	out := *u
	out.LastLoginAt = cloneTime(u.LastLoginAt)
	return &out
}
