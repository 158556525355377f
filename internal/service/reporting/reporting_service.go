// Package reporting builds the weekly farm activity summary sent to managers.
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Store is the read side the report needs.
type Store interface {
	CountActivities(ctx context.Context, farmID string, kind models.ActivityKind, start, end time.Time) (int, float64, error)
	ListApprovals(ctx context.Context, farmID string, status models.ApprovalStatus) ([]models.PendingApproval, error)
}

// KindTotal is the activity volume of one kind over the period.
type KindTotal struct {
	Kind    models.ActivityKind
	Records int
	Kg      float64
}

// WeeklyReport summarizes a farm's ledger over the last seven days.
type WeeklyReport struct {
	FarmID           string
	Start            time.Time
	End              time.Time
	Totals           []KindTotal
	PendingApprovals int
}

// Service exposes lightweight analytics for WhatsApp summaries.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// GenerateWeeklyReport aggregates the seven days ending at now.
func (s *Service) GenerateWeeklyReport(ctx context.Context, farmID string, now time.Time) (WeeklyReport, error) {
	end := now
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
	report := WeeklyReport{FarmID: farmID, Start: start, End: end}

	for _, kind := range models.ActivityKinds {
		count, kg, err := s.store.CountActivities(ctx, farmID, kind, start, end)
		if err != nil {
			return WeeklyReport{}, fmt.Errorf("count %s activities: %w", kind, err)
		}
		report.Totals = append(report.Totals, KindTotal{Kind: kind, Records: count, Kg: kg})
	}

	pending, err := s.store.ListApprovals(ctx, farmID, models.ApprovalPending)
	if err != nil {
		return WeeklyReport{}, fmt.Errorf("list pending approvals: %w", err)
	}
	report.PendingApprovals = len(pending)

	s.logger.Info("weekly report generated", zap.String("farm_id", farmID), zap.Int("pending_approvals", report.PendingApprovals))
	return report, nil
}

// Message renders the report for a chat message.
func (r WeeklyReport) Message() models.Bilingual {
	period := fmt.Sprintf("%s / %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	fr := []string{fmt.Sprintf("Rapport hebdomadaire (%s)", period)}
	en := []string{fmt.Sprintf("Weekly report (%s)", period)}

	var total int
	for _, t := range r.Totals {
		if t.Records == 0 {
			continue
		}
		total += t.Records
		line := fmt.Sprintf("- %s: %d", t.Kind, t.Records)
		if t.Kind == models.KindFeeding && t.Kg > 0 {
			line += fmt.Sprintf(" (%.1f kg)", t.Kg)
		}
		fr = append(fr, line)
		en = append(en, line)
	}
	if total == 0 {
		fr = append(fr, "Aucune activité enregistrée.")
		en = append(en, "No activity recorded.")
	}
	fr = append(fr, fmt.Sprintf("Validations en attente : %d", r.PendingApprovals))
	en = append(en, fmt.Sprintf("Pending approvals: %d", r.PendingApprovals))

	return models.Bilingual{FR: strings.Join(fr, "\n"), EN: strings.Join(en, "\n")}
}
