package model

import "time"

const (
	NotificationSystem          = "SYSTEM"
	NotificationPasswordReset   = "PASSWORD_RESET"
	NotificationAccountCreated  = "ACCOUNT_CREATED"
	NotificationLicenseExpiring = "LICENSE_EXPIRING"

	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

// Notification is a message to one user, or a broadcast when UserID is empty.
// IsRead is stored for direct messages; for broadcasts it is the caller's own read state.
type Notification struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID string    `json:"enterpriseId,omitempty" gorm:"type:varchar(36);index"`
	UserID       string    `json:"userId,omitempty" gorm:"type:varchar(36);index"`
	Type         string    `json:"type" gorm:"type:varchar(50)"`
	Title        string    `json:"title" gorm:"type:varchar(500)"`
	Content      string    `json:"content" gorm:"type:text"`
	Priority     string    `json:"priority" gorm:"type:varchar(20)"`
	IsRead       bool      `json:"isRead"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime:false;index"`
}

// NotificationScope identifies the caller a notification must be visible to
type NotificationScope struct {
	EnterpriseID string
	UserID       string
}

// Visible reports whether the notification is visible within the scope
func (s NotificationScope) Visible(n *Notification) bool {
	return (n.UserID == "" || n.UserID == s.UserID) &&
		(n.EnterpriseID == "" || n.EnterpriseID == s.EnterpriseID)
}

// IsBroadcast reports whether the notification is addressed to more than one user
func (n *Notification) IsBroadcast() bool {
	return n.UserID == ""
}

// NotificationRead records that one user has read a broadcast
type NotificationRead struct {
	NotificationID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"primaryKey;type:varchar(36);index"`
	ReadAt         time.Time `gorm:"autoCreateTime:false"`
}

// CanDeleteNotification reports whether a caller with role may delete a visible
// notification. Direct messages belong to their recipient, enterprise broadcasts
// to the enterprise's administrators and global broadcasts to the super administrator.
func CanDeleteNotification(role string, n *Notification) bool {
	switch {
	case !n.IsBroadcast():
		return true
	case n.EnterpriseID == "":
		return role == RoleSuperAdmin
	default:
		return IsAdminRole(role)
	}
}
