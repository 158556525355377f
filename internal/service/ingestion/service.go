// Package ingestion runs the voice activity pipeline: extraction, temporal and structural
// validation, animal and feed resolution, herd distribution, the approval gate and the ledger commit.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/ledger"
	"github.com/mamadbah2/herdlog/internal/service/temporal"
	"github.com/mamadbah2/herdlog/internal/service/validation"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxBackdateDays = 7
)

// Extractor is the language-model oracle. knownAnimal is the id of an animal the caller already
// selected, empty otherwise. The returned structures are untrusted.
type Extractor interface {
	ExtractActivities(ctx context.Context, transcription, knownAnimal string) ([]map[string]any, error)
}

// Store is the read side the pipeline needs.
type Store interface {
	ListAnimals(ctx context.Context, farmID string) ([]models.Animal, error)
	ListFeedInventory(ctx context.Context, farmID string) ([]models.FeedInventoryEntry, error)
	GetFarmSettings(ctx context.Context, farmID string) (models.FarmSettings, error)
}

// Ledger verifies and commits resolved submissions.
type Ledger interface {
	Verify(ctx context.Context, sub models.Submission) error
	Commit(ctx context.Context, sub models.Submission, approvalID string) (ledger.Receipt, error)
}

// Gate is the approval gate.
type Gate interface {
	Evaluate(ctx context.Context, actor models.Actor, kind models.ActivityKind) (models.ApprovalDecision, error)
	Enqueue(ctx context.Context, actor models.Actor, kind models.ActivityKind, payload models.Submission, deadline time.Time) (models.PendingApproval, error)
}

// Dependencies groups the collaborators of the pipeline.
type Dependencies struct {
	Extractor Extractor
	Store     Store
	Ledger    Ledger
	Gate      Gate
}

// Options tunes the pipeline.
type Options struct {
	// Timeout bounds the whole request, oracle call and store round-trips included.
	Timeout time.Duration
	// DefaultMaxBackdateDays applies to farms without their own window.
	DefaultMaxBackdateDays int
	// Location is used for calendar dates when the farm has no timezone.
	Location *time.Location
}

// Request is one transcription submitted by a verified actor.
type Request struct {
	Actor         models.Actor
	Transcription string
	// AnimalID is an animal the caller already selected, e.g. from a clarification.
	AnimalID string
	// FeedTypeHint answers a previous feed-type clarification.
	FeedTypeHint string
}

// Service is the ingestion orchestrator.
type Service struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the orchestrator.
func NewService(deps Dependencies, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DefaultMaxBackdateDays <= 0 {
		opts.DefaultMaxBackdateDays = DefaultMaxBackdateDays
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Process runs one transcription to a terminal outcome. Classified failures become a rejected or
// clarification result; only infrastructure failures are returned as errors. Nothing is written
// unless every candidate validated and resolved.
func (s *Service) Process(ctx context.Context, req Request) (models.IngestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	res, err := s.process(ctx, req)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errs.IsKind(err, errs.KindUpstreamTimeout) {
		err = errs.Timeout("data store", err)
	}
	if e, ok := errs.As(err); ok {
		s.logger.Info("activity not recorded",
			zap.String("farm_id", req.Actor.FarmID),
			zap.String("actor_id", req.Actor.UserID),
			zap.String("kind", string(e.Kind)),
			zap.String("code", e.Code))
		return failure(e), nil
	}
	return models.IngestResult{}, err
}

func (s *Service) process(ctx context.Context, req Request) (models.IngestResult, error) {
	transcription := strings.TrimSpace(req.Transcription)
	if transcription == "" {
		return models.IngestResult{}, errs.New(errs.KindInputValidation, errs.CodeMissingField,
			"Le message est vide.",
			"The message is empty.")
	}
	if len([]rune(transcription)) > validation.MaxTranscriptionLength {
		return models.IngestResult{}, errs.Newf(errs.KindInputValidation, errs.CodeTextTooLong,
			"Le message dépasse %d caractères.",
			"The message exceeds %d characters.", validation.MaxTranscriptionLength)
	}

	settings, err := s.deps.Store.GetFarmSettings(ctx, req.Actor.FarmID)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("load farm settings: %w", err)
	}
	clock := temporal.NewResolver(s.location(settings)).WithClock(s.now)
	window := settings.MaxBackdateDays
	if window <= 0 {
		window = s.opts.DefaultMaxBackdateDays
	}

	// A future reference anywhere in the report rejects it, whatever the oracle extracts.
	if temporal.IsFuture(transcription) {
		if _, err := clock.Resolve(&transcription, window); err != nil {
			return models.IngestResult{}, err
		}
	}

	raw, err := s.deps.Extractor.ExtractActivities(ctx, transcription, req.AnimalID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.IngestResult{}, errs.Timeout("extraction service", err)
		}
		return models.IngestResult{}, fmt.Errorf("extract activities: %w", err)
	}

	candidates, err := s.prepare(raw, clock, window)
	if err != nil {
		return models.IngestResult{}, err
	}

	sub, notes, err := s.resolve(ctx, req, transcription, candidates)
	if err != nil {
		return models.IngestResult{}, err
	}

	if err := s.deps.Ledger.Verify(ctx, sub); err != nil {
		return models.IngestResult{}, err
	}

	return s.route(ctx, req.Actor, sub, notes)
}

// prepare decodes every candidate, resolves its date and validates it. Dates are checked for
// all candidates before any structural rule so a future or stale report is always reported as such.
func (s *Service) prepare(raw []map[string]any, clock *temporal.Resolver, window int) ([]candidate, error) {
	if len(raw) == 0 {
		return nil, errs.New(errs.KindInputValidation, errs.CodeNoActivity,
			"Aucune activité reconnue dans le message. Précisez l'activité, l'animal et la quantité.",
			"No activity was recognized in the message. Please state the activity, the animal and the quantity.")
	}

	out := make([]candidate, 0, len(raw))
	for _, r := range raw {
		c, err := validation.ParseCandidate(r)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate{ActivityCandidate: c})
	}

	for i := range out {
		when, err := clock.Resolve(out[i].DateReference, window)
		if err != nil {
			return nil, err
		}
		if when.Matched {
			s.logger.Debug("date reference resolved",
				zap.String("reference", *out[i].DateReference),
				zap.String("language", when.Language),
				zap.Int("days_ago", when.DaysAgo))
		}
		out[i].when = when
	}

	for _, c := range out {
		if err := validation.Validate(c.ActivityCandidate); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// route applies the approval gate per activity kind, commits what needs no review and queues the rest.
func (s *Service) route(ctx context.Context, actor models.Actor, sub models.Submission, notes []models.Bilingual) (models.IngestResult, error) {
	decisions := make(map[models.ActivityKind]models.ApprovalDecision)
	for _, kind := range sub.Kinds() {
		decision, err := s.deps.Gate.Evaluate(ctx, actor, kind)
		if err != nil {
			return models.IngestResult{}, err
		}
		decisions[kind] = decision
	}

	direct := models.Submission{FarmID: sub.FarmID, ActorID: sub.ActorID, Transcription: sub.Transcription}
	for _, kind := range sub.Kinds() {
		if decisions[kind].Required {
			continue
		}
		part := sub.OfKind(kind)
		direct.Activities = append(direct.Activities, part.Activities...)
		direct.Plans = append(direct.Plans, part.Plans...)
	}

	if !direct.Empty() {
		if _, err := s.deps.Ledger.Commit(ctx, direct, ""); err != nil {
			return models.IngestResult{}, err
		}
	}

	queued := make(map[models.ActivityKind]models.PendingApproval)
	dropped := make(map[models.ActivityKind]bool)
	for _, kind := range sub.Kinds() {
		decision := decisions[kind]
		if !decision.Required {
			continue
		}
		pending, err := s.deps.Gate.Enqueue(ctx, actor, kind, sub.OfKind(kind), decision.Deadline)
		if err != nil {
			// Nothing persisted yet: the caller can retry the whole message safely.
			if direct.Empty() && len(queued) == 0 {
				return models.IngestResult{}, err
			}
			s.logger.Error("failed to queue activity for approval",
				zap.String("farm_id", sub.FarmID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			dropped[kind] = true
			notes = append(notes, notQueued(kind))
			continue
		}
		queued[kind] = pending
	}

	return acknowledge(except(sub, dropped), queued, notes), nil
}

// except returns sub without the activities and plans of the given kinds.
func except(sub models.Submission, kinds map[models.ActivityKind]bool) models.Submission {
	if len(kinds) == 0 {
		return sub
	}
	out := models.Submission{FarmID: sub.FarmID, ActorID: sub.ActorID, Transcription: sub.Transcription}
	for _, a := range sub.Activities {
		if !kinds[a.Kind] {
			out.Activities = append(out.Activities, a)
		}
	}
	if !kinds[models.KindFeeding] {
		out.Plans = sub.Plans
	}
	return out
}

func (s *Service) location(settings models.FarmSettings) *time.Location {
	if settings.Timezone == "" {
		return s.opts.Location
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		s.logger.Warn("invalid farm timezone, using default",
			zap.String("farm_id", settings.ID),
			zap.String("timezone", settings.Timezone),
			zap.Error(err))
		return s.opts.Location
	}
	return loc
}
