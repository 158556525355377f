package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/reporting"
)

type approverFunc func(ctx context.Context) (int, error)

func (f approverFunc) AutoApproveDue(ctx context.Context) (int, error) { return f(ctx) }

type fakeReporter struct {
	farmID string
	now    time.Time
}

func (f *fakeReporter) GenerateWeeklyReport(_ context.Context, farmID string, now time.Time) (reporting.WeeklyReport, error) {
	f.farmID, f.now = farmID, now
	return reporting.WeeklyReport{
		FarmID: farmID,
		Start:  now.AddDate(0, 0, -6),
		End:    now,
		Totals: []reporting.KindTotal{{Kind: models.KindFeeding, Records: 2, Kg: 150}},
	}, nil
}

type fakeNotifier struct {
	sent []models.OutboundMessageRequest
	err  error
}

func (f *fakeNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

func testConfig() config.Config {
	return config.Config{
		Approval:  config.ApprovalConfig{AutoApproveSchedule: "@every 5m"},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * 0", Timezone: "Africa/Conakry", FarmID: "farm-1"},
		WhatsApp:  config.WhatsAppConfig{ManagerID: "224620000009"},
	}
}

func TestSendWeeklyReport(t *testing.T) {
	reports := &fakeReporter{}
	notifier := &fakeNotifier{}
	s, err := NewScheduler(testConfig(), nil, reports, notifier, zaptest.NewLogger(t))
	require.NoError(t, err)
	now := time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SendWeeklyReport(context.Background()))

	assert.Equal(t, "farm-1", reports.farmID)
	assert.Equal(t, now, reports.now)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "224620000009", notifier.sent[0].To)
	assert.True(t, strings.Contains(notifier.sent[0].Message, "feeding: 2"), notifier.sent[0].Message)
}

func TestSendWeeklyReport_DeliveryFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("meta unavailable")}
	s, err := NewScheduler(testConfig(), nil, &fakeReporter{}, notifier, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ErrorContains(t, s.SendWeeklyReport(context.Background()), "meta unavailable")
}

func TestRunAutoApproval(t *testing.T) {
	calls := 0
	approver := approverFunc(func(context.Context) (int, error) {
		calls++
		return 3, nil
	})
	s, err := NewScheduler(testConfig(), approver, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.RunAutoApproval(context.Background()))
	assert.Equal(t, 1, calls)

	failing := approverFunc(func(context.Context) (int, error) { return 0, errors.New("store down") })
	s.approvals = failing
	assert.Error(t, s.RunAutoApproval(context.Background()))
}

func TestStart_RegistersJobs(t *testing.T) {
	s, err := NewScheduler(testConfig(), approverFunc(func(context.Context) (int, error) { return 0, nil }), &fakeReporter{}, &fakeNotifier{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 2)
}

func TestStart_SkipsReportWithoutNotifier(t *testing.T) {
	s, err := NewScheduler(testConfig(), approverFunc(func(context.Context) (int, error) { return 0, nil }), &fakeReporter{}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 1)
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Approval.AutoApproveSchedule = "not a schedule"
	s, err := NewScheduler(cfg, approverFunc(func(context.Context) (int, error) { return 0, nil }), nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestNewScheduler_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.Timezone = "Mars/Olympus"

	_, err := NewScheduler(cfg, nil, nil, nil, nil)
	assert.Error(t, err)
}
