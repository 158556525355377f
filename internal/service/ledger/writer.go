// Package ledger commits resolved submissions to the farm's operational ledger. It is the last
// line of defence: every animal must belong to the submitting farm and no activity may predate the
// animal's arrival.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// SourceVoice tags records created from spoken reports.
const SourceVoice = "voice"

// Store is the persistence the ledger needs. InsertActivityBatches must be atomic across all
// batches: either every record of the call is visible or none is.
type Store interface {
	ListAnimals(ctx context.Context, farmID string) ([]models.Animal, error)
	InsertActivityBatches(ctx context.Context, batches []models.ActivityBatch) error
}

// Mirror receives a copy of committed records (e.g. a spreadsheet). Failures never undo a commit.
type Mirror interface {
	AppendRecords(ctx context.Context, kind models.ActivityKind, records []models.ActivityRecord) error
}

// Receipt summarizes a commit.
type Receipt struct {
	Records int
	PerKind map[models.ActivityKind]int
}

// Writer validates and persists submissions.
type Writer struct {
	store  Store
	mirror Mirror
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter builds a ledger writer. mirror may be nil.
func NewWriter(store Store, mirror Mirror, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, mirror: mirror, logger: logger, now: time.Now}
}

// Verify checks farm ownership and farm-entry dates for every animal the submission touches
// without writing anything.
func (w *Writer) Verify(ctx context.Context, sub models.Submission) error {
	_, err := w.verify(ctx, sub)
	return err
}

func (w *Writer) verify(ctx context.Context, sub models.Submission) (map[string]models.Animal, error) {
	animals, err := w.store.ListAnimals(ctx, sub.FarmID)
	if err != nil {
		return nil, fmt.Errorf("load farm roster: %w", err)
	}
	byID := make(map[string]models.Animal, len(animals))
	for _, a := range animals {
		byID[a.ID] = a
	}

	check := func(animalID string, day time.Time) error {
		animal, ok := byID[animalID]
		if !ok {
			w.logger.Warn("animal outside requesting farm",
				zap.String("farm_id", sub.FarmID),
				zap.String("animal_id", animalID),
				zap.String("actor_id", sub.ActorID))
			return errs.New(errs.KindAuthorization, errs.CodeAnimalNotInFarm,
				"Cet animal n'appartient pas à votre ferme.",
				"This animal does not belong to your farm.")
		}
		if beforeEntry(day, animal.EntryDate) {
			return errs.Newf(errs.KindTemporalPolicy, errs.CodeBeforeEntryDate,
				"%s est arrivé(e) à la ferme le %s ; impossible d'enregistrer une activité antérieure.",
				"%s joined the farm on %s; activities cannot be logged before that date.",
				animal.Label(), animal.EntryDate.Format("2006-01-02"))
		}
		return nil
	}

	for _, a := range sub.Activities {
		if a.AnimalID == "" {
			continue
		}
		if err := check(a.AnimalID, a.Date); err != nil {
			return nil, err
		}
	}
	for _, p := range sub.Plans {
		for _, s := range p.Shares {
			if err := check(s.AnimalID, p.Date); err != nil {
				return nil, err
			}
		}
	}
	return byID, nil
}

// Commit verifies then writes the whole submission in one atomic store call, one batch per
// activity kind. Distribution plans add one feeding record per animal. A failed commit writes
// nothing, so the submission can be retried as is.
func (w *Writer) Commit(ctx context.Context, sub models.Submission, approvalID string) (Receipt, error) {
	if _, err := w.verify(ctx, sub); err != nil {
		return Receipt{}, err
	}

	recordedAt := w.now().UTC()
	byKind := make(map[models.ActivityKind][]models.ActivityRecord)
	var order []models.ActivityKind
	add := func(kind models.ActivityKind, records ...models.ActivityRecord) {
		if _, seen := byKind[kind]; !seen {
			order = append(order, kind)
		}
		byKind[kind] = append(byKind[kind], records...)
	}
	for _, a := range sub.Activities {
		add(a.Kind, activityRecord(sub, a, approvalID, recordedAt))
	}
	for _, p := range sub.Plans {
		add(models.KindFeeding, planRecords(sub, p, approvalID, recordedAt)...)
	}

	receipt := Receipt{PerKind: make(map[models.ActivityKind]int)}
	batches := make([]models.ActivityBatch, 0, len(order))
	for _, kind := range order {
		if len(byKind[kind]) == 0 {
			continue
		}
		batches = append(batches, models.ActivityBatch{Kind: kind, Records: byKind[kind]})
		receipt.Records += len(byKind[kind])
		receipt.PerKind[kind] = len(byKind[kind])
	}
	if len(batches) == 0 {
		return receipt, nil
	}

	if err := w.store.InsertActivityBatches(ctx, batches); err != nil {
		return Receipt{}, fmt.Errorf("insert %d activity records: %w", receipt.Records, err)
	}
	w.mirrorBatches(ctx, batches)

	w.logger.Info("submission committed",
		zap.String("farm_id", sub.FarmID),
		zap.String("actor_id", sub.ActorID),
		zap.String("approval_id", approvalID),
		zap.Int("records", receipt.Records))
	return receipt, nil
}

func (w *Writer) mirrorBatches(ctx context.Context, batches []models.ActivityBatch) {
	if w.mirror == nil {
		return
	}
	for _, b := range batches {
		if err := w.mirror.AppendRecords(ctx, b.Kind, b.Records); err != nil {
			w.logger.Warn("ledger mirror append failed", zap.String("kind", string(b.Kind)), zap.Error(err))
		}
	}
}

func activityRecord(sub models.Submission, a models.ResolvedActivity, approvalID string, recordedAt time.Time) models.ActivityRecord {
	rec := models.ActivityRecord{
		ID:         uuid.NewString(),
		FarmID:     sub.FarmID,
		Kind:       a.Kind,
		AnimalID:   a.AnimalID,
		Date:       a.Date,
		OccurredAt: a.Timestamp,
		RecordedBy: sub.ActorID,
		RecordedAt: recordedAt,
		Notes:      a.Notes,
		ApprovalID: approvalID,
		Source:     SourceVoice,
	}
	switch a.Kind {
	case models.KindMilking:
		rec.Liters = a.Quantity
	case models.KindFeeding:
		rec.QuantityKg = a.Quantity
		rec.FeedType = a.FeedType
	case models.KindWeightMeasurement:
		rec.QuantityKg = a.Quantity
	case models.KindInjection:
		rec.Medicine = a.Medicine
		rec.Dosage = a.Dosage
	}
	return rec
}

func planRecords(sub models.Submission, p models.DistributionPlan, approvalID string, recordedAt time.Time) []models.ActivityRecord {
	records := make([]models.ActivityRecord, 0, len(p.Shares))
	for _, s := range p.Shares {
		records = append(records, models.ActivityRecord{
			ID:             uuid.NewString(),
			FarmID:         sub.FarmID,
			Kind:           models.KindFeeding,
			AnimalID:       s.AnimalID,
			Date:           p.Date,
			OccurredAt:     p.Timestamp,
			RecordedBy:     sub.ActorID,
			RecordedAt:     recordedAt,
			QuantityKg:     s.ShareKg,
			FeedType:       p.FeedType,
			Notes:          p.Notes,
			DistributionID: p.ID,
			ApprovalID:     approvalID,
			Source:         SourceVoice,
		})
	}
	return records
}

// beforeEntry compares calendar days in the activity's location.
func beforeEntry(day, entry time.Time) bool {
	if entry.IsZero() {
		return false
	}
	entry = entry.In(day.Location())
	entryDay := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, day.Location())
	activityDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return activityDay.Before(entryDay)
}
