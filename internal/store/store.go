package store

import (
	"context"
	"errors"
	"time"

	"disclosure-service/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist or is outside the caller's scope
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate record")
	// ErrLimitReached is returned when an enterprise holds its maximum number of users
	ErrLimitReached = errors.New("user limit reached")
)

// DisclosureFilter narrows a disclosure listing. Empty fields match everything.
type DisclosureFilter struct {
	EnterpriseID string
	AuthorID     string
	Status       string
}

// Store is the state of the service. Update functions run atomically against the
// current record; an error returned by the closure aborts the update unchanged.
// Returned records are copies owned by the caller.
type Store interface {
	ListEnterprises(ctx context.Context) ([]*model.Enterprise, error)
	GetEnterprise(ctx context.Context, id string) (*model.Enterprise, error)
	GetEnterpriseByCode(ctx context.Context, code string) (*model.Enterprise, error)
	CreateEnterprise(ctx context.Context, e *model.Enterprise) error
	UpdateEnterprise(ctx context.Context, id string, fn func(*model.Enterprise) error) (*model.Enterprise, error)

	ListUsers(ctx context.Context, enterpriseID string) ([]*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	// FindUserByEmail returns the earliest created user with the email, limited to
	// one enterprise when enterpriseID is not empty.
	FindUserByEmail(ctx context.Context, email, enterpriseID string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error)
	DeleteUser(ctx context.Context, id string, guard func(*model.User) error) error
	CountUsers(ctx context.Context, enterpriseID string) (total int, active int, err error)

	ListDisclosures(ctx context.Context, filter DisclosureFilter) ([]*model.Disclosure, error)
	GetDisclosure(ctx context.Context, id string) (*model.Disclosure, error)
	CreateDisclosure(ctx context.Context, d *model.Disclosure) error
	UpdateDisclosure(ctx context.Context, id string, fn func(*model.Disclosure) error) (*model.Disclosure, error)
	DeleteDisclosure(ctx context.Context, id string, guard func(*model.Disclosure) error) error
	CountDisclosuresByStatus(ctx context.Context, enterpriseID string) (map[string]int, error)

	GetAIConfig(ctx context.Context, enterpriseID string) (*model.AIConfig, error)
	// UpsertAIConfig applies fn to the enterprise's config, creating an empty one first when absent.
	UpsertAIConfig(ctx context.Context, enterpriseID string, fn func(*model.AIConfig) error) (*model.AIConfig, error)
	AddAIModel(ctx context.Context, enterpriseID string, m model.AIModel) (*model.AIConfig, error)

	ListPromptConfigs(ctx context.Context, enterpriseID string) ([]*model.PromptConfig, error)
	CreatePromptConfig(ctx context.Context, p *model.PromptConfig) error
	UpdatePromptConfig(ctx context.Context, enterpriseID, id string, fn func(*model.PromptConfig) error) (*model.PromptConfig, error)
	DeletePromptConfig(ctx context.Context, enterpriseID, id string) error

	ListFieldConfigs(ctx context.Context, enterpriseID string) ([]*model.FieldConfig, error)
	// CreateFieldConfig appends a field config; an OrderIndex of zero places it last.
	CreateFieldConfig(ctx context.Context, f *model.FieldConfig) error
	ReplaceFieldConfigs(ctx context.Context, enterpriseID string, configs []model.FieldConfig) ([]*model.FieldConfig, error)

	// Notification reads are per caller: a broadcast is read once the scope's user has read it.
	ListNotifications(ctx context.Context, scope model.NotificationScope) ([]*model.Notification, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
	MarkNotificationRead(ctx context.Context, scope model.NotificationScope, id string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, scope model.NotificationScope) (int, error)
	DeleteNotification(ctx context.Context, scope model.NotificationScope, id string, guard func(*model.Notification) error) error
	CountNotifications(ctx context.Context, scope model.NotificationScope) (total int, unread int, err error)

	Close() error
}

// Clock returns the current time
type Clock func() time.Time

// SystemClock returns the wall clock in UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

// nextUpdate returns a modification time strictly after prev
func nextUpdate(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}

// earlier orders by time, then by id, so listings are deterministic
func earlier(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}

// stampCreate assigns an id and creation time to a new record where missing
func stampCreate(now Clock, id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = newID()
	}
	if createdAt.IsZero() {
		*createdAt = now()
	}
	*updatedAt = *createdAt
}

func newID() string {
	return uuid.NewString()
}
