package job

import (
	"context"
	"fmt"
	"time"

	"disclosure-service/internal/model"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/config"
	"disclosure-service/prometheus"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// noticeInterval is the minimum gap between two license notices of one enterprise
const noticeInterval = 24 * time.Hour

// Scheduler runs the periodic maintenance jobs of the service
type Scheduler struct {
	store   store.Store
	log     *zap.Logger
	cron    *cron.Cron
	cfg     config.JobConfig
	now     store.Clock
	timeout time.Duration
}

// NewScheduler creates a scheduler; jobs are registered by Start
func NewScheduler(st store.Store, cfg config.JobConfig, log *zap.Logger) *Scheduler {
	cronLog := cronLogger{log: log.Sugar()}
	return &Scheduler{
		store:   st,
		log:     log,
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		cfg:     cfg,
		now:     store.SystemClock,
		timeout: time.Minute,
	}
}

// Start registers the jobs, runs each once and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"refresh_metrics", s.cfg.MetricsSpec, s.RefreshMetrics},
		{"license_check", s.cfg.LicenseSpec, s.NotifyExpiringLicenses},
	}

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.run(j.name, j.run) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		if err := j.run(ctx); err != nil {
			s.log.Warn("Initial job run failed", zap.String("job", j.name), zap.Error(err))
		}
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		zap.String("metrics_spec", s.cfg.MetricsSpec),
		zap.String("license_spec", s.cfg.LicenseSpec))
	return nil
}

// Stop halts the cron loop and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Debug("Job completed", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

// RefreshMetrics recomputes the enterprise, user and disclosure gauges
func (s *Scheduler) RefreshMetrics(ctx context.Context) error {
	enterprises, err := s.store.ListEnterprises(ctx)
	if err != nil {
		return fmt.Errorf("list enterprises: %w", err)
	}

	active := 0
	users := make(map[string]int, len(enterprises))
	for _, e := range enterprises {
		if e.IsActive() {
			active++
		}
		total, _, err := s.store.CountUsers(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("count users of %s: %w", e.Code, err)
		}
		users[e.Code] = total
	}

	byStatus, err := s.store.CountDisclosuresByStatus(ctx, "")
	if err != nil {
		return fmt.Errorf("count disclosures: %w", err)
	}

	prometheus.UpdateActiveEnterprises(active)
	prometheus.UpdateUsersPerEnterprise(users)
	prometheus.UpdateDisclosuresByStatus(byStatus)
	return nil
}

// NotifyExpiringLicenses posts a high priority notice to every active enterprise whose
// license expires within the warning window, at most once per enterprise per day.
func (s *Scheduler) NotifyExpiringLicenses(ctx context.Context) error {
	enterprises, err := s.store.ListEnterprises(ctx)
	if err != nil {
		return fmt.Errorf("list enterprises: %w", err)
	}

	now := s.now()
	deadline := now.AddDate(0, 0, s.cfg.LicenseWarnDays)
	for _, e := range enterprises {
		if !e.IsActive() || e.LicenseExpireAt == nil || e.LicenseExpireAt.After(deadline) {
			continue
		}
		recent, err := s.noticedSince(ctx, e.ID, now.Add(-noticeInterval))
		if err != nil {
			return err
		}
		if recent {
			continue
		}

		if err := s.store.CreateNotification(ctx, licenseNotice(e, now)); err != nil {
			return fmt.Errorf("notify %s: %w", e.Code, err)
		}
		s.log.Info("License expiry notice sent",
			zap.String("enterprise_id", e.ID),
			zap.String("code", e.Code),
			zap.Time("expire_at", *e.LicenseExpireAt))
	}
	return nil
}

func (s *Scheduler) noticedSince(ctx context.Context, enterpriseID string, since time.Time) (bool, error) {
	broadcasts, err := s.store.ListNotifications(ctx, model.NotificationScope{EnterpriseID: enterpriseID})
	if err != nil {
		return false, fmt.Errorf("list notifications: %w", err)
	}
	for _, n := range broadcasts {
		if n.Type == model.NotificationLicenseExpiring && n.EnterpriseID == enterpriseID && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func licenseNotice(e *model.Enterprise, now time.Time) *model.Notification {
	expireAt := e.LicenseExpireAt.UTC()
	content := fmt.Sprintf("企业授权将于 %s 到期，请及时续期。", expireAt.Format("2006-01-02"))
	if expireAt.Before(now) {
		content = fmt.Sprintf("企业授权已于 %s 到期，请尽快续期。", expireAt.Format("2006-01-02"))
	}
	return &model.Notification{
		EnterpriseID: e.ID,
		Type:         model.NotificationLicenseExpiring,
		Title:        "授权即将到期",
		Content:      content,
		Priority:     model.PriorityHigh,
	}
}

// cronLogger routes cron's own logging to zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
