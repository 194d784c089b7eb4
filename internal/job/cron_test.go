package job

import (
	"context"
	"testing"
	"time"

	"disclosure-service/internal/model"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, now *time.Time) (*Scheduler, store.Store) {
	t.Helper()
	clock := func() time.Time { return *now }
	st := store.NewMemoryStore(clock)
	s := NewScheduler(st, config.JobConfig{MetricsSpec: "@every 1m", LicenseSpec: "0 2 * * *", LicenseWarnDays: 30}, zap.NewNop())
	s.now = clock
	return s, st
}

func addEnterprise(t *testing.T, st store.Store, code, status string, expireAt *time.Time) *model.Enterprise {
	t.Helper()
	e := &model.Enterprise{Name: code, Code: code, Status: status, MaxUsers: 5, LicenseExpireAt: expireAt}
	require.NoError(t, st.CreateEnterprise(context.Background(), e))
	return e
}

func licenseNotices(t *testing.T, st store.Store, enterpriseID string) []*model.Notification {
	t.Helper()
	all, err := st.ListNotifications(context.Background(), model.NotificationScope{EnterpriseID: enterpriseID})
	require.NoError(t, err)
	var out []*model.Notification
	for _, n := range all {
		if n.Type == model.NotificationLicenseExpiring {
			out = append(out, n)
		}
	}
	return out
}

func TestNotifyExpiringLicenses(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	s, st := newTestScheduler(t, &now)
	ctx := context.Background()

	soon := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -1)
	later := now.AddDate(0, 6, 0)
	expiring := addEnterprise(t, st, "SOON", model.StatusActive, &soon)
	expired := addEnterprise(t, st, "PAST", model.StatusActive, &past)
	fine := addEnterprise(t, st, "LATER", model.StatusActive, &later)
	disabled := addEnterprise(t, st, "OFF", model.StatusDisabled, &soon)
	unlimited := addEnterprise(t, st, "FOREVER", model.StatusActive, nil)

	require.NoError(t, s.NotifyExpiringLicenses(ctx))

	notices := licenseNotices(t, st, expiring.ID)
	require.Len(t, notices, 1)
	assert.Equal(t, model.PriorityHigh, notices[0].Priority)
	assert.Equal(t, expiring.ID, notices[0].EnterpriseID)
	assert.Empty(t, notices[0].UserID)
	assert.Contains(t, notices[0].Content, "2026-03-11")

	assert.Len(t, licenseNotices(t, st, expired.ID), 1)
	assert.Empty(t, licenseNotices(t, st, fine.ID))
	assert.Empty(t, licenseNotices(t, st, disabled.ID))
	assert.Empty(t, licenseNotices(t, st, unlimited.ID))

	now = now.Add(12 * time.Hour)
	require.NoError(t, s.NotifyExpiringLicenses(ctx))
	assert.Len(t, licenseNotices(t, st, expiring.ID), 1, "one notice per day")

	now = now.Add(13 * time.Hour)
	require.NoError(t, s.NotifyExpiringLicenses(ctx))
	assert.Len(t, licenseNotices(t, st, expiring.ID), 2)
}

func TestLicenseNoticeStaysInEnterprise(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	s, st := newTestScheduler(t, &now)

	soon := now.AddDate(0, 0, 3)
	expiring := addEnterprise(t, st, "SOON", model.StatusActive, &soon)
	other := addEnterprise(t, st, "OTHER", model.StatusActive, nil)

	require.NoError(t, s.NotifyExpiringLicenses(context.Background()))
	assert.Len(t, licenseNotices(t, st, expiring.ID), 1)
	assert.Empty(t, licenseNotices(t, st, other.ID))
}

func TestRefreshMetrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	s, st := newTestScheduler(t, &now)
	ctx := context.Background()

	e := addEnterprise(t, st, "ACME", model.StatusActive, nil)
	addEnterprise(t, st, "IDLE", model.StatusDisabled, nil)
	require.NoError(t, st.CreateUser(ctx, &model.User{EnterpriseID: e.ID, Email: "a@acme.com", Role: model.RoleAdmin, Status: model.StatusActive}))
	require.NoError(t, st.CreateDisclosure(ctx, &model.Disclosure{EnterpriseID: e.ID, Status: model.DisclosureDraft}))

	assert.NoError(t, s.RefreshMetrics(ctx))
}

func TestStartRejectsBadSpec(t *testing.T) {
	now := time.Now().UTC()
	s, _ := newTestScheduler(t, &now)
	s.cfg.LicenseSpec = "not a spec"

	err := s.Start(context.Background())
	assert.Error(t, err)
	s.Stop(context.Background())
}

func TestStartAndStop(t *testing.T) {
	now := time.Now().UTC()
	s, _ := newTestScheduler(t, &now)

	require.NoError(t, s.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
