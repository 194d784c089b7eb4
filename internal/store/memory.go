package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"disclosure-service/internal/model"
	"disclosure-service/prometheus"
)

const driverMemory = "memory"

// MemoryStore keeps every collection in process memory, keyed by id.
// A single lock guards all collections so cross-collection rules stay atomic.
type MemoryStore struct {
	mu            sync.RWMutex
	now           Clock
	enterprises   map[string]*model.Enterprise
	users         map[string]*model.User
	disclosures   map[string]*model.Disclosure
	aiConfigs     map[string]*model.AIConfig // enterpriseID -> config
	promptConfigs map[string]*model.PromptConfig
	fieldConfigs  map[string]*model.FieldConfig
	notifications map[string]*model.Notification
	reads         map[string]map[string]struct{} // notificationID -> user ids that read the broadcast
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryStore{
		now:           clock,
		enterprises:   map[string]*model.Enterprise{},
		users:         map[string]*model.User{},
		disclosures:   map[string]*model.Disclosure{},
		aiConfigs:     map[string]*model.AIConfig{},
		promptConfigs: map[string]*model.PromptConfig{},
		fieldConfigs:  map[string]*model.FieldConfig{},
		notifications: map[string]*model.Notification{},
		reads:         map[string]map[string]struct{}{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func track(operation string) func() {
	return prometheus.TrackStoreOperation(driverMemory, operation)
}

// Enterprises

func (s *MemoryStore) ListEnterprises(_ context.Context) ([]*model.Enterprise, error) {
	defer track("list_enterprises")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Enterprise, 0, len(s.enterprises))
	for _, e := range s.enterprises {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *MemoryStore) GetEnterprise(_ context.Context, id string) (*model.Enterprise, error) {
	defer track("get_enterprise")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enterprises[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) GetEnterpriseByCode(_ context.Context, code string) (*model.Enterprise, error) {
	defer track("get_enterprise_by_code")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.enterprises {
		if e.Code == code {
			return e.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateEnterprise(_ context.Context, e *model.Enterprise) error {
	defer track("create_enterprise")()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.enterprises {
		if existing.Code == e.Code {
			return fmt.Errorf("enterprise code %q: %w", e.Code, ErrDuplicate)
		}
	}
	stampCreate(s.now, &e.ID, &e.CreatedAt, &e.UpdatedAt)
	s.enterprises[e.ID] = e.Clone()
	return nil
}

func (s *MemoryStore) UpdateEnterprise(_ context.Context, id string, fn func(*model.Enterprise) error) (*model.Enterprise, error) {
	defer track("update_enterprise")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.enterprises[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID, next.Code, next.CreatedAt = current.ID, current.Code, current.CreatedAt
	next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
	s.enterprises[id] = next
	return next.Clone(), nil
}

// Users

func (s *MemoryStore) ListUsers(_ context.Context, enterpriseID string) ([]*model.User, error) {
	defer track("list_users")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersOf(enterpriseID), nil
}

func (s *MemoryStore) usersOf(enterpriseID string) []*model.User {
	out := make([]*model.User, 0)
	for _, u := range s.users {
		if enterpriseID != "" && u.EnterpriseID != enterpriseID {
			continue
		}
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	defer track("get_user")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email, enterpriseID string) (*model.User, error) {
	defer track("find_user_by_email")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.usersOf(enterpriseID) {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	defer track("create_user")()
	s.mu.Lock()
	defer s.mu.Unlock()

	enterprise, ok := s.enterprises[u.EnterpriseID]
	if !ok {
		return fmt.Errorf("enterprise %s: %w", u.EnterpriseID, ErrNotFound)
	}
	count := 0
	for _, existing := range s.users {
		if existing.EnterpriseID != u.EnterpriseID {
			continue
		}
		if existing.Email == u.Email {
			return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
		}
		count++
	}
	if count >= enterprise.MaxUsers {
		return ErrLimitReached
	}
	stampCreate(s.now, &u.ID, &u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	defer track("update_user")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID, next.EnterpriseID, next.Email, next.CreatedAt = current.ID, current.EnterpriseID, current.Email, current.CreatedAt
	next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
	s.users[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string, guard func(*model.User) error) error {
	defer track("delete_user")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(current.Clone()); err != nil {
			return err
		}
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) CountUsers(_ context.Context, enterpriseID string) (int, int, error) {
	defer track("count_users")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, active := 0, 0
	for _, u := range s.users {
		if enterpriseID != "" && u.EnterpriseID != enterpriseID {
			continue
		}
		total++
		if u.IsActive() {
			active++
		}
	}
	return total, active, nil
}

// Disclosures

func (s *MemoryStore) ListDisclosures(_ context.Context, filter DisclosureFilter) ([]*model.Disclosure, error) {
	defer track("list_disclosures")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Disclosure, 0)
	for _, d := range s.disclosures {
		if filter.EnterpriseID != "" && d.EnterpriseID != filter.EnterpriseID {
			continue
		}
		if filter.AuthorID != "" && d.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[j].UpdatedAt, out[i].UpdatedAt, out[j].ID, out[i].ID)
	})
	return out, nil
}

func (s *MemoryStore) GetDisclosure(_ context.Context, id string) (*model.Disclosure, error) {
	defer track("get_disclosure")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disclosures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *MemoryStore) CreateDisclosure(_ context.Context, d *model.Disclosure) error {
	defer track("create_disclosure")()
	s.mu.Lock()
	defer s.mu.Unlock()

	stampCreate(s.now, &d.ID, &d.CreatedAt, &d.UpdatedAt)
	s.disclosures[d.ID] = d.Clone()
	return nil
}

func (s *MemoryStore) UpdateDisclosure(_ context.Context, id string, fn func(*model.Disclosure) error) (*model.Disclosure, error) {
	defer track("update_disclosure")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.disclosures[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID, next.EnterpriseID, next.CreatedAt = current.ID, current.EnterpriseID, current.CreatedAt
	next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
	s.disclosures[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteDisclosure(_ context.Context, id string, guard func(*model.Disclosure) error) error {
	defer track("delete_disclosure")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.disclosures[id]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(current.Clone()); err != nil {
			return err
		}
	}
	delete(s.disclosures, id)
	return nil
}

func (s *MemoryStore) CountDisclosuresByStatus(_ context.Context, enterpriseID string) (map[string]int, error) {
	defer track("count_disclosures")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]int{}
	for _, d := range s.disclosures {
		if enterpriseID != "" && d.EnterpriseID != enterpriseID {
			continue
		}
		out[d.Status]++
	}
	return out, nil
}

// AI configuration

func (s *MemoryStore) GetAIConfig(_ context.Context, enterpriseID string) (*model.AIConfig, error) {
	defer track("get_ai_config")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.aiConfigs[enterpriseID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) UpsertAIConfig(_ context.Context, enterpriseID string, fn func(*model.AIConfig) error) (*model.AIConfig, error) {
	defer track("upsert_ai_config")()
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertAIConfig(enterpriseID, fn)
}

func (s *MemoryStore) upsertAIConfig(enterpriseID string, fn func(*model.AIConfig) error) (*model.AIConfig, error) {
	current, exists := s.aiConfigs[enterpriseID]
	var next *model.AIConfig
	if exists {
		next = current.Clone()
	} else {
		next = model.DefaultAIConfig(enterpriseID)
	}
	if err := fn(next); err != nil {
		return nil, err
	}
	next.EnterpriseID = enterpriseID
	if next.Models == nil {
		next.Models = model.AIModelList{}
	}
	if exists {
		next.ID, next.CreatedAt = current.ID, current.CreatedAt
		next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
	} else {
		next.ID = ""
		stampCreate(s.now, &next.ID, &next.CreatedAt, &next.UpdatedAt)
	}
	s.aiConfigs[enterpriseID] = next
	return next.Clone(), nil
}

func (s *MemoryStore) AddAIModel(_ context.Context, enterpriseID string, m model.AIModel) (*model.AIConfig, error) {
	defer track("add_ai_model")()
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertAIConfig(enterpriseID, func(c *model.AIConfig) error {
		return appendModel(c, m)
	})
}

func appendModel(c *model.AIConfig, m model.AIModel) error {
	if c.HasModel(m.ModelID) {
		return fmt.Errorf("model %q: %w", m.ModelID, ErrDuplicate)
	}
	c.Models = append(c.Models, m)
	return nil
}

// Prompt configs

func (s *MemoryStore) ListPromptConfigs(_ context.Context, enterpriseID string) ([]*model.PromptConfig, error) {
	defer track("list_prompt_configs")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.PromptConfig, 0)
	for _, p := range s.promptConfigs {
		if p.EnterpriseID != enterpriseID {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *MemoryStore) CreatePromptConfig(_ context.Context, p *model.PromptConfig) error {
	defer track("create_prompt_config")()
	s.mu.Lock()
	defer s.mu.Unlock()

	stampCreate(s.now, &p.ID, &p.CreatedAt, &p.UpdatedAt)
	if p.IsDefault {
		s.clearDefaultPrompts(p.EnterpriseID, p.Type, p.ID)
	}
	c := *p
	s.promptConfigs[p.ID] = &c
	return nil
}

func (s *MemoryStore) UpdatePromptConfig(_ context.Context, enterpriseID, id string, fn func(*model.PromptConfig) error) (*model.PromptConfig, error) {
	defer track("update_prompt_config")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.promptConfigs[id]
	if !ok || current.EnterpriseID != enterpriseID {
		return nil, ErrNotFound
	}
	next := *current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID, next.EnterpriseID, next.Type, next.CreatedAt = current.ID, current.EnterpriseID, current.Type, current.CreatedAt
	next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
	if next.IsDefault {
		s.clearDefaultPrompts(enterpriseID, next.Type, id)
	}
	s.promptConfigs[id] = &next
	out := next
	return &out, nil
}

func (s *MemoryStore) clearDefaultPrompts(enterpriseID, promptType, keepID string) {
	for id, p := range s.promptConfigs {
		if id != keepID && p.EnterpriseID == enterpriseID && p.Type == promptType && p.IsDefault {
			p.IsDefault = false
		}
	}
}

func (s *MemoryStore) DeletePromptConfig(_ context.Context, enterpriseID, id string) error {
	defer track("delete_prompt_config")()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.promptConfigs[id]
	if !ok || current.EnterpriseID != enterpriseID {
		return ErrNotFound
	}
	delete(s.promptConfigs, id)
	return nil
}

// Field configs

func (s *MemoryStore) ListFieldConfigs(_ context.Context, enterpriseID string) ([]*model.FieldConfig, error) {
	defer track("list_field_configs")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fieldConfigsOf(enterpriseID), nil
}

func (s *MemoryStore) fieldConfigsOf(enterpriseID string) []*model.FieldConfig {
	out := make([]*model.FieldConfig, 0)
	for _, f := range s.fieldConfigs {
		if f.EnterpriseID != enterpriseID {
			continue
		}
		c := *f
		out = append(out, &c)
	}
	sortFieldConfigs(out)
	return out
}

func sortFieldConfigs(list []*model.FieldConfig) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].OrderIndex != list[j].OrderIndex {
			return list[i].OrderIndex < list[j].OrderIndex
		}
		return list[i].ID < list[j].ID
	})
}

func (s *MemoryStore) CreateFieldConfig(_ context.Context, f *model.FieldConfig) error {
	defer track("create_field_config")()
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = newID()
	}
	if f.OrderIndex == 0 {
		f.OrderIndex = len(s.fieldConfigsOf(f.EnterpriseID)) + 1
	}
	c := *f
	s.fieldConfigs[f.ID] = &c
	return nil
}

func (s *MemoryStore) ReplaceFieldConfigs(_ context.Context, enterpriseID string, configs []model.FieldConfig) ([]*model.FieldConfig, error) {
	defer track("replace_field_configs")()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.fieldConfigs {
		if f.EnterpriseID == enterpriseID {
			delete(s.fieldConfigs, id)
		}
	}
	for _, f := range normalizeFieldConfigs(enterpriseID, configs, func(id string) bool {
		_, taken := s.fieldConfigs[id]
		return taken
	}) {
		s.fieldConfigs[f.ID] = f
	}
	return s.fieldConfigsOf(enterpriseID), nil
}

// normalizeFieldConfigs binds replacement rows to the enterprise and assigns
// fresh ids where one is missing, repeated or owned elsewhere.
func normalizeFieldConfigs(enterpriseID string, configs []model.FieldConfig, taken func(string) bool) []*model.FieldConfig {
	seen := make(map[string]struct{}, len(configs))
	out := make([]*model.FieldConfig, 0, len(configs))
	for i := range configs {
		f := configs[i]
		f.EnterpriseID = enterpriseID
		f.ID = strings.TrimSpace(f.ID)
		if _, dup := seen[f.ID]; f.ID == "" || dup || taken(f.ID) {
			f.ID = newID()
		}
		seen[f.ID] = struct{}{}
		out = append(out, &f)
	}
	return out
}

// Notifications

// viewOf returns a copy of n with the read state of userID
func (s *MemoryStore) viewOf(n *model.Notification, userID string) *model.Notification {
	c := *n
	if n.IsBroadcast() {
		_, c.IsRead = s.reads[n.ID][userID]
	}
	return &c
}

// markRead records that userID read n, reporting whether it was unread
func (s *MemoryStore) markRead(n *model.Notification, userID string) bool {
	if !n.IsBroadcast() {
		changed := !n.IsRead
		n.IsRead = true
		return changed
	}
	readers, ok := s.reads[n.ID]
	if !ok {
		readers = map[string]struct{}{}
		s.reads[n.ID] = readers
	}
	if _, done := readers[userID]; done {
		return false
	}
	readers[userID] = struct{}{}
	return true
}

func (s *MemoryStore) ListNotifications(_ context.Context, scope model.NotificationScope) ([]*model.Notification, error) {
	defer track("list_notifications")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Notification, 0)
	for _, n := range s.notifications {
		if scope.Visible(n) {
			out = append(out, s.viewOf(n, scope.UserID))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return out, nil
}

func (s *MemoryStore) CreateNotification(_ context.Context, n *model.Notification) error {
	defer track("create_notification")()
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	c := *n
	if c.IsBroadcast() {
		c.IsRead = false
	}
	s.notifications[n.ID] = &c
	return nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, scope model.NotificationScope, id string) (*model.Notification, error) {
	defer track("mark_notification_read")()
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || !scope.Visible(n) {
		return nil, ErrNotFound
	}
	s.markRead(n, scope.UserID)
	return s.viewOf(n, scope.UserID), nil
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, scope model.NotificationScope) (int, error) {
	defer track("mark_all_notifications_read")()
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, n := range s.notifications {
		if scope.Visible(n) && s.markRead(n, scope.UserID) {
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryStore) DeleteNotification(_ context.Context, scope model.NotificationScope, id string, guard func(*model.Notification) error) error {
	defer track("delete_notification")()
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || !scope.Visible(n) {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(s.viewOf(n, scope.UserID)); err != nil {
			return err
		}
	}
	delete(s.notifications, id)
	delete(s.reads, id)
	return nil
}

func (s *MemoryStore) CountNotifications(_ context.Context, scope model.NotificationScope) (int, int, error) {
	defer track("count_notifications")()
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, unread := 0, 0
	for _, n := range s.notifications {
		if !scope.Visible(n) {
			continue
		}
		total++
		if !s.viewOf(n, scope.UserID).IsRead {
			unread++
		}
	}
	return total, unread, nil
}
