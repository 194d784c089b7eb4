package store

import (
	"context"
	"errors"
	"fmt"

	"disclosure-service/internal/model"
	"disclosure-service/pkg/database"
	"disclosure-service/prometheus"

	"gorm.io/gorm"
)

const driverSQLite = "sqlite"

// Models lists the tables of the relational store
func Models() []interface{} {
	return []interface{}{
		&model.Enterprise{},
		&model.User{},
		&model.Disclosure{},
		&model.AIConfig{},
		&model.PromptConfig{},
		&model.FieldConfig{},
		&model.Notification{},
		&model.NotificationRead{},
	}
}

// GormStore keeps the collections as tables of a gorm database. Each mutation runs in one transaction.
type GormStore struct {
	db  *gorm.DB
	now Clock
}

// NewGormStore migrates the schema and returns a store over db
func NewGormStore(db *gorm.DB, clock Clock) (*GormStore, error) {
	if clock == nil {
		clock = SystemClock
	}
	if err := database.MigrateModels(db, Models()...); err != nil {
		return nil, err
	}
	return &GormStore{db: db, now: clock}, nil
}

func (s *GormStore) Close() error {
	return database.Close(s.db)
}

func (s *GormStore) track(operation string) func() {
	return prometheus.TrackStoreOperation(driverSQLite, operation)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func scoped(tx *gorm.DB, scope model.NotificationScope) *gorm.DB {
	return tx.Where("(user_id = '' OR user_id = ?) AND (enterprise_id = '' OR enterprise_id = ?)",
		scope.UserID, scope.EnterpriseID)
}

// Enterprises

func (s *GormStore) ListEnterprises(ctx context.Context) ([]*model.Enterprise, error) {
	defer s.track("list_enterprises")()

	var rows []*model.Enterprise
	if err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) GetEnterprise(ctx context.Context, id string) (*model.Enterprise, error) {
	defer s.track("get_enterprise")()

	var e model.Enterprise
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) GetEnterpriseByCode(ctx context.Context, code string) (*model.Enterprise, error) {
	defer s.track("get_enterprise_by_code")()

	var e model.Enterprise
	if err := s.db.WithContext(ctx).First(&e, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) CreateEnterprise(ctx context.Context, e *model.Enterprise) error {
	defer s.track("create_enterprise")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Enterprise{}).Where("code = ?", e.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("enterprise code %q: %w", e.Code, ErrDuplicate)
		}
		stampCreate(s.now, &e.ID, &e.CreatedAt, &e.UpdatedAt)
		return tx.Create(e).Error
	})
}

func (s *GormStore) UpdateEnterprise(ctx context.Context, id string, fn func(*model.Enterprise) error) (*model.Enterprise, error) {
	defer s.track("update_enterprise")()

	var out *model.Enterprise
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Enterprise
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID, next.Code, next.CreatedAt = current.ID, current.Code, current.CreatedAt
		next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
		if err := tx.Save(next).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Users

func (s *GormStore) ListUsers(ctx context.Context, enterpriseID string) ([]*model.User, error) {
	defer s.track("list_users")()

	q := s.db.WithContext(ctx).Order("created_at asc, id asc")
	if enterpriseID != "" {
		q = q.Where("enterprise_id = ?", enterpriseID)
	}
	var rows []*model.User
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	defer s.track("get_user")()

	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email, enterpriseID string) (*model.User, error) {
	defer s.track("find_user_by_email")()

	q := s.db.WithContext(ctx).Where("email = ?", email)
	if enterpriseID != "" {
		q = q.Where("enterprise_id = ?", enterpriseID)
	}
	var u model.User
	if err := q.Order("created_at asc, id asc").First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *model.User) error {
	defer s.track("create_user")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enterprise model.Enterprise
		if err := tx.First(&enterprise, "id = ?", u.EnterpriseID).Error; err != nil {
			return fmt.Errorf("enterprise %s: %w", u.EnterpriseID, notFound(err))
		}

		var dup int64
		if err := tx.Model(&model.User{}).
			Where("enterprise_id = ? AND email = ?", u.EnterpriseID, u.Email).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
		}

		var count int64
		if err := tx.Model(&model.User{}).Where("enterprise_id = ?", u.EnterpriseID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= enterprise.MaxUsers {
			return ErrLimitReached
		}

		stampCreate(s.now, &u.ID, &u.CreatedAt, &u.UpdatedAt)
		return tx.Create(u).Error
	})
}

func (s *GormStore) UpdateUser(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	defer s.track("update_user")()

	var out *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.User
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID, next.EnterpriseID, next.Email, next.CreatedAt = current.ID, current.EnterpriseID, current.Email, current.CreatedAt
		next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
		if err := tx.Save(next).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteUser(ctx context.Context, id string, guard func(*model.User) error) error {
	defer s.track("delete_user")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.User
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if guard != nil {
			if err := guard(&current); err != nil {
				return err
			}
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
}

func (s *GormStore) CountUsers(ctx context.Context, enterpriseID string) (int, int, error) {
	defer s.track("count_users")()

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.User{})
		if enterpriseID != "" {
			q = q.Where("enterprise_id = ?", enterpriseID)
		}
		return q
	}
	var total, active int64
	if err := base().Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := base().Where("status = ?", model.StatusActive).Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return int(total), int(active), nil
}

// Disclosures

func (s *GormStore) ListDisclosures(ctx context.Context, filter DisclosureFilter) ([]*model.Disclosure, error) {
	defer s.track("list_disclosures")()

	q := s.db.WithContext(ctx)
	if filter.EnterpriseID != "" {
		q = q.Where("enterprise_id = ?", filter.EnterpriseID)
	}
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var rows []*model.Disclosure
	if err := q.Order("updated_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) GetDisclosure(ctx context.Context, id string) (*model.Disclosure, error) {
	defer s.track("get_disclosure")()

	var d model.Disclosure
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *GormStore) CreateDisclosure(ctx context.Context, d *model.Disclosure) error {
	defer s.track("create_disclosure")()

	stampCreate(s.now, &d.ID, &d.CreatedAt, &d.UpdatedAt)
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) UpdateDisclosure(ctx context.Context, id string, fn func(*model.Disclosure) error) (*model.Disclosure, error) {
	defer s.track("update_disclosure")()

	var out *model.Disclosure
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Disclosure
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID, next.EnterpriseID, next.CreatedAt = current.ID, current.EnterpriseID, current.CreatedAt
		next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
		if err := tx.Save(next).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteDisclosure(ctx context.Context, id string, guard func(*model.Disclosure) error) error {
	defer s.track("delete_disclosure")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Disclosure
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if guard != nil {
			if err := guard(&current); err != nil {
				return err
			}
		}
		return tx.Delete(&model.Disclosure{}, "id = ?", id).Error
	})
}

func (s *GormStore) CountDisclosuresByStatus(ctx context.Context, enterpriseID string) (map[string]int, error) {
	defer s.track("count_disclosures")()

	q := s.db.WithContext(ctx).Model(&model.Disclosure{})
	if enterpriseID != "" {
		q = q.Where("enterprise_id = ?", enterpriseID)
	}
	var rows []struct {
		Status string
		N      int
	}
	if err := q.Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// AI configuration

func (s *GormStore) GetAIConfig(ctx context.Context, enterpriseID string) (*model.AIConfig, error) {
	defer s.track("get_ai_config")()

	var c model.AIConfig
	if err := s.db.WithContext(ctx).First(&c, "enterprise_id = ?", enterpriseID).Error; err != nil {
		return nil, notFound(err)
	}
	if c.Models == nil {
		c.Models = model.AIModelList{}
	}
	return &c, nil
}

func (s *GormStore) UpsertAIConfig(ctx context.Context, enterpriseID string, fn func(*model.AIConfig) error) (*model.AIConfig, error) {
	defer s.track("upsert_ai_config")()

	var out *model.AIConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.upsertAIConfig(tx, enterpriseID, fn)
		return err
	})
	return out, err
}

func (s *GormStore) upsertAIConfig(tx *gorm.DB, enterpriseID string, fn func(*model.AIConfig) error) (*model.AIConfig, error) {
	var current model.AIConfig
	err := tx.First(&current, "enterprise_id = ?", enterpriseID).Error
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

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
		return next, tx.Save(next).Error
	}
	next.ID = ""
	stampCreate(s.now, &next.ID, &next.CreatedAt, &next.UpdatedAt)
	return next, tx.Create(next).Error
}

func (s *GormStore) AddAIModel(ctx context.Context, enterpriseID string, m model.AIModel) (*model.AIConfig, error) {
	defer s.track("add_ai_model")()

	var out *model.AIConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.upsertAIConfig(tx, enterpriseID, func(c *model.AIConfig) error {
			return appendModel(c, m)
		})
		return err
	})
	return out, err
}

// Prompt configs

func (s *GormStore) ListPromptConfigs(ctx context.Context, enterpriseID string) ([]*model.PromptConfig, error) {
	defer s.track("list_prompt_configs")()

	var rows []*model.PromptConfig
	if err := s.db.WithContext(ctx).
		Where("enterprise_id = ?", enterpriseID).
		Order("created_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func clearDefaultPrompts(tx *gorm.DB, enterpriseID, promptType, keepID string) error {
	return tx.Model(&model.PromptConfig{}).
		Where("enterprise_id = ? AND type = ? AND id <> ? AND is_default = ?", enterpriseID, promptType, keepID, true).
		Update("is_default", false).Error
}

func (s *GormStore) CreatePromptConfig(ctx context.Context, p *model.PromptConfig) error {
	defer s.track("create_prompt_config")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stampCreate(s.now, &p.ID, &p.CreatedAt, &p.UpdatedAt)
		if p.IsDefault {
			if err := clearDefaultPrompts(tx, p.EnterpriseID, p.Type, p.ID); err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
}

func (s *GormStore) UpdatePromptConfig(ctx context.Context, enterpriseID, id string, fn func(*model.PromptConfig) error) (*model.PromptConfig, error) {
	defer s.track("update_prompt_config")()

	var out *model.PromptConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.PromptConfig
		if err := tx.First(&current, "id = ? AND enterprise_id = ?", id, enterpriseID).Error; err != nil {
			return notFound(err)
		}
		next := current
		if err := fn(&next); err != nil {
			return err
		}
		next.ID, next.EnterpriseID, next.Type, next.CreatedAt = current.ID, current.EnterpriseID, current.Type, current.CreatedAt
		next.UpdatedAt = nextUpdate(s.now(), current.UpdatedAt)
		if next.IsDefault {
			if err := clearDefaultPrompts(tx, enterpriseID, next.Type, id); err != nil {
				return err
			}
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		out = &next
		return nil
	})
	return out, err
}

func (s *GormStore) DeletePromptConfig(ctx context.Context, enterpriseID, id string) error {
	defer s.track("delete_prompt_config")()

	res := s.db.WithContext(ctx).Delete(&model.PromptConfig{}, "id = ? AND enterprise_id = ?", id, enterpriseID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Field configs

func (s *GormStore) ListFieldConfigs(ctx context.Context, enterpriseID string) ([]*model.FieldConfig, error) {
	defer s.track("list_field_configs")()

	return listFieldConfigs(s.db.WithContext(ctx), enterpriseID)
}

func listFieldConfigs(tx *gorm.DB, enterpriseID string) ([]*model.FieldConfig, error) {
	var rows []*model.FieldConfig
	if err := tx.Where("enterprise_id = ?", enterpriseID).
		Order("order_index asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) CreateFieldConfig(ctx context.Context, f *model.FieldConfig) error {
	defer s.track("create_field_config")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if f.OrderIndex == 0 {
			var count int64
			if err := tx.Model(&model.FieldConfig{}).Where("enterprise_id = ?", f.EnterpriseID).Count(&count).Error; err != nil {
				return err
			}
			f.OrderIndex = int(count) + 1
		}
		if f.ID == "" {
			f.ID = newID()
		}
		return tx.Create(f).Error
	})
}

func (s *GormStore) ReplaceFieldConfigs(ctx context.Context, enterpriseID string, configs []model.FieldConfig) ([]*model.FieldConfig, error) {
	defer s.track("replace_field_configs")()

	var out []*model.FieldConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("enterprise_id = ?", enterpriseID).Delete(&model.FieldConfig{}).Error; err != nil {
			return err
		}

		var lookupErr error
		rows := normalizeFieldConfigs(enterpriseID, configs, func(id string) bool {
			var count int64
			if err := tx.Model(&model.FieldConfig{}).Where("id = ?", id).Count(&count).Error; err != nil {
				lookupErr = err
			}
			return count > 0
		})
		if lookupErr != nil {
			return lookupErr
		}
		if len(rows) > 0 {
			if err := tx.Create(rows).Error; err != nil {
				return err
			}
		}

		var err error
		out, err = listFieldConfigs(tx, enterpriseID)
		return err
	})
	return out, err
}

// Notifications

func listScoped(tx *gorm.DB, scope model.NotificationScope) ([]*model.Notification, error) {
	var rows []*model.Notification
	if err := scoped(tx, scope).Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, applyReads(tx, scope.UserID, rows)
}

// applyReads sets the read state of userID on the broadcast rows
func applyReads(tx *gorm.DB, userID string, rows []*model.Notification) error {
	var ids []string
	for _, n := range rows {
		if n.IsBroadcast() {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var read []string
	if err := tx.Model(&model.NotificationRead{}).
		Where("user_id = ? AND notification_id IN ?", userID, ids).
		Pluck("notification_id", &read).Error; err != nil {
		return err
	}
	done := make(map[string]bool, len(read))
	for _, id := range read {
		done[id] = true
	}
	for _, n := range rows {
		if n.IsBroadcast() {
			n.IsRead = done[n.ID]
		}
	}
	return nil
}

// markRead records that userID read n; n carries the caller's read state
func (s *GormStore) markRead(tx *gorm.DB, n *model.Notification, userID string) (bool, error) {
	if n.IsRead {
		return false, nil
	}
	n.IsRead = true
	if !n.IsBroadcast() {
		return true, tx.Model(&model.Notification{}).Where("id = ?", n.ID).Update("is_read", true).Error
	}
	return true, tx.Create(&model.NotificationRead{NotificationID: n.ID, UserID: userID, ReadAt: s.now()}).Error
}

func (s *GormStore) ListNotifications(ctx context.Context, scope model.NotificationScope) ([]*model.Notification, error) {
	defer s.track("list_notifications")()

	return listScoped(s.db.WithContext(ctx), scope)
}

func (s *GormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	defer s.track("create_notification")()

	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.IsBroadcast() {
		n.IsRead = false
	}
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, scope model.NotificationScope, id string) (*model.Notification, error) {
	defer s.track("mark_notification_read")()

	var out model.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scoped(tx, scope).First(&out, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := applyReads(tx, scope.UserID, []*model.Notification{&out}); err != nil {
			return err
		}
		_, err := s.markRead(tx, &out, scope.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, scope model.NotificationScope) (int, error) {
	defer s.track("mark_all_notifications_read")()

	changed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := listScoped(tx, scope)
		if err != nil {
			return err
		}
		for _, n := range rows {
			ok, err := s.markRead(tx, n, scope.UserID)
			if err != nil {
				return err
			}
			if ok {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *GormStore) DeleteNotification(ctx context.Context, scope model.NotificationScope, id string, guard func(*model.Notification) error) error {
	defer s.track("delete_notification")()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Notification
		if err := scoped(tx, scope).First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if guard != nil {
			if err := applyReads(tx, scope.UserID, []*model.Notification{&current}); err != nil {
				return err
			}
			if err := guard(&current); err != nil {
				return err
			}
		}
		if err := tx.Delete(&model.NotificationRead{}, "notification_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Notification{}, "id = ?", id).Error
	})
}

func (s *GormStore) CountNotifications(ctx context.Context, scope model.NotificationScope) (int, int, error) {
	defer s.track("count_notifications")()

	rows, err := listScoped(s.db.WithContext(ctx), scope)
	if err != nil {
		return 0, 0, err
	}
	unread := 0
	for _, n := range rows {
		if !n.IsRead {
			unread++
		}
	}
	return len(rows), unread, nil
}
