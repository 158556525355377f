// Package scheduler runs the periodic jobs: the approval auto-approval sweep and the weekly
// activity report sent to the farm manager.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/reporting"
)

const jobTimeout = 2 * time.Minute

// AutoApprover approves pending entries whose review window has elapsed.
type AutoApprover interface {
	AutoApproveDue(ctx context.Context) (int, error)
}

// Reporter builds the weekly activity summary of a farm.
type Reporter interface {
	GenerateWeeklyReport(ctx context.Context, farmID string, now time.Time) (reporting.WeeklyReport, error)
}

// Notifier delivers a text message to a WhatsApp recipient.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	approvals AutoApprover
	reports   Reporter
	notifier  Notifier
	cfg       config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler running in the reporting timezone. notifier may be nil
// when WhatsApp is disabled; the weekly report is then not scheduled.
func NewScheduler(cfg config.Config, approvals AutoApprover, reports Reporter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone: %w", err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		approvals: approvals,
		reports:   reports,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.approvals != nil && s.cfg.Approval.AutoApproveSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Approval.AutoApproveSchedule, s.job("auto-approval", s.RunAutoApproval)); err != nil {
			return fmt.Errorf("schedule auto-approval: %w", err)
		}
	}

	if s.reportEnabled() {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.job("weekly report", s.SendWeeklyReport)); err != nil {
			return fmt.Errorf("schedule weekly report: %w", err)
		}
	} else {
		s.logger.Info("weekly report disabled", zap.String("farm_id", s.cfg.Reporting.FarmID))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunAutoApproval commits every pending entry past its deadline.
func (s *Scheduler) RunAutoApproval(ctx context.Context) error {
	n, err := s.approvals.AutoApproveDue(ctx)
	if err != nil {
		return fmt.Errorf("auto-approve: %w", err)
	}
	if n > 0 {
		s.logger.Info("auto-approved pending entries", zap.Int("count", n))
	}
	return nil
}

// SendWeeklyReport generates the report of the configured farm and sends it to the manager.
func (s *Scheduler) SendWeeklyReport(ctx context.Context) error {
	report, err := s.reports.GenerateWeeklyReport(ctx, s.cfg.Reporting.FarmID, s.now())
	if err != nil {
		return fmt.Errorf("generate weekly report: %w", err)
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.ManagerID,
		Message: report.Message().String(),
	}
	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send weekly report: %w", err)
	}

	s.logger.Info("weekly report sent", zap.String("farm_id", s.cfg.Reporting.FarmID))
	return nil
}

func (s *Scheduler) reportEnabled() bool {
	return s.reports != nil && s.notifier != nil &&
		s.cfg.Reporting.FarmID != "" && s.cfg.WhatsApp.ManagerID != "" && s.cfg.Reporting.CronSchedule != ""
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}
