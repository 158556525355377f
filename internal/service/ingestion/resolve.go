package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/distribution"
	"github.com/mamadbah2/herdlog/internal/service/identity"
	"github.com/mamadbah2/herdlog/internal/service/inventory"
	"github.com/mamadbah2/herdlog/internal/service/temporal"
	"github.com/mamadbah2/herdlog/internal/textnorm"
)

const maxParallelFeeds = 4

// herdReferences are animal references that mean "the whole herd" rather than one animal.
var herdReferences = map[string]bool{
	"all":              true,
	"animals":          true,
	"the animals":      true,
	"all animals":      true,
	"herd":             true,
	"the herd":         true,
	"cows":             true,
	"the cows":         true,
	"tous":             true,
	"les animaux":      true,
	"tous les animaux": true,
	"troupeau":         true,
	"le troupeau":      true,
	"les vaches":       true,
	"todos":            true,
	"los animales":     true,
	"el rebano":        true,
	"las vacas":        true,
}

type candidate struct {
	models.ActivityCandidate
	when temporal.Resolution
}

func (c candidate) quantity() float64 {
	if c.Quantity == nil {
		return 0
	}
	return *c.Quantity
}

func (c candidate) animalRef() (string, bool) {
	if !c.HasAnimalRef() {
		return "", false
	}
	if c.Kind == models.KindFeeding && herdReferences[textnorm.Fold(*c.AnimalRef)] {
		return "", false
	}
	return *c.AnimalRef, true
}

// resolve binds every candidate. Single-animal activities become ResolvedActivity values; feeding
// without an animal becomes one distribution plan per feed type.
func (s *Service) resolve(ctx context.Context, req Request, transcription string, candidates []candidate) (models.Submission, []models.Bilingual, error) {
	feedings := 0
	for _, c := range candidates {
		if c.Kind == models.KindFeeding {
			feedings++
		}
	}

	roster, entries, err := s.load(ctx, req.Actor.FarmID, feedings > 0)
	if err != nil {
		return models.Submission{}, nil, err
	}
	feeds := inventory.NewResolver(entries)
	active := make([]models.Animal, 0, len(roster))
	for _, a := range roster {
		if a.IsActive() {
			active = append(active, a)
		}
	}

	hint := feedHint{name: req.FeedTypeHint, single: feedings == 1}
	sub := models.Submission{FarmID: req.Actor.FarmID, ActorID: req.Actor.UserID, Transcription: transcription}
	var (
		notes []models.Bilingual
		bulk  []candidate
	)

	for _, c := range candidates {
		animal, bound, err := s.bindAnimal(req, c, roster, active)
		if err != nil {
			return models.Submission{}, nil, err
		}
		if !bound {
			if c.Kind == models.KindFeeding {
				bulk = append(bulk, c)
				continue
			}
			if c.Kind.RequiresAnimal() {
				return models.Submission{}, nil, identity.NeedsSelection(active)
			}
		}

		activity := models.ResolvedActivity{
			ID:        uuid.NewString(),
			Kind:      c.Kind,
			Quantity:  c.quantity(),
			Date:      c.when.Date,
			Timestamp: c.when.Timestamp,
			Notes:     deref(c.Notes),
			Medicine:  deref(c.Medicine),
			Dosage:    deref(c.Dosage),
		}
		if c.Unit != nil {
			activity.Unit = *c.Unit
		}
		if bound {
			activity.AnimalID = animal.ID
			activity.AnimalLabel = animal.Label()
		}

		if c.Kind == models.KindFeeding {
			feed, err := feeds.Resolve(hint.request(c))
			if err != nil {
				return models.Submission{}, nil, err
			}
			s.logFeed(req.Actor, c, feed)
			activity.FeedType = feed.FeedType
			activity.Quantity = feed.QuantityKg
			activity.Unit = models.UnitKilograms
			if feed.Unit.IsCountBased() {
				activity.UnitCount = feed.UnitCount
				activity.CountUnit = feed.Unit
				activity.WeightPerUnitKg = feed.WeightPerUnitKg
			}
			if feed.Renamed() {
				notes = append(notes, renamed(feed.FeedType))
			}
		}
		sub.Activities = append(sub.Activities, activity)
	}

	if len(bulk) > 0 {
		plans, planNotes, err := s.distribute(req.Actor, bulk, feeds, roster, hint)
		if err != nil {
			return models.Submission{}, nil, err
		}
		sub.Plans = plans
		notes = append(notes, planNotes...)
	}
	return sub, notes, nil
}

// load reads the roster and, when needed, the feed inventory concurrently.
func (s *Service) load(ctx context.Context, farmID string, withInventory bool) ([]models.Animal, []models.FeedInventoryEntry, error) {
	var (
		roster  []models.Animal
		entries []models.FeedInventoryEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if roster, err = s.deps.Store.ListAnimals(gctx, farmID); err != nil {
			return fmt.Errorf("load farm roster: %w", err)
		}
		return nil
	})
	if withInventory {
		g.Go(func() error {
			var err error
			if entries, err = s.deps.Store.ListFeedInventory(gctx, farmID); err != nil {
				return fmt.Errorf("load feed inventory: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roster, entries, nil
}

// bindAnimal returns the animal a candidate is about. bound is false when the kind needs no
// animal or none was named.
func (s *Service) bindAnimal(req Request, c candidate, roster, active []models.Animal) (models.Animal, bool, error) {
	if !c.Kind.RequiresAnimal() && c.Kind != models.KindFeeding {
		return models.Animal{}, false, nil
	}

	if req.AnimalID != "" {
		for _, a := range roster {
			if a.ID == req.AnimalID {
				return a, true, nil
			}
		}
		s.logger.Warn("selected animal outside requesting farm",
			zap.String("farm_id", req.Actor.FarmID),
			zap.String("animal_id", req.AnimalID),
			zap.String("actor_id", req.Actor.UserID))
		return models.Animal{}, false, errs.New(errs.KindAuthorization, errs.CodeAnimalNotInFarm,
			"Cet animal n'appartient pas à votre ferme.",
			"This animal does not belong to your farm.")
	}

	ref, ok := c.animalRef()
	if !ok {
		return models.Animal{}, false, nil
	}
	match, err := identity.Resolve(ref, active)
	if err != nil {
		return models.Animal{}, false, err
	}
	s.logger.Info("animal resolved",
		zap.String("farm_id", req.Actor.FarmID),
		zap.String("reference", ref),
		zap.String("animal_id", match.Animal.ID),
		zap.String("strategy", match.Strategy),
		zap.Int("score", match.Score))
	return match.Animal, true, nil
}

// distribute resolves each bulk feed concurrently, merges candidates naming the same feed on the
// same day and allocates each feed across the eligible herd.
func (s *Service) distribute(actor models.Actor, bulk []candidate, feeds *inventory.Resolver, roster []models.Animal, hint feedHint) ([]models.DistributionPlan, []models.Bilingual, error) {
	resolved := make([]inventory.Resolution, len(bulk))
	failures := make([]error, len(bulk))

	var g errgroup.Group
	g.SetLimit(maxParallelFeeds)
	for i, c := range bulk {
		i, c := i, c
		g.Go(func() error {
			resolved[i], failures[i] = feeds.Resolve(hint.request(c))
			return failures[i]
		})
	}
	if err := g.Wait(); err != nil {
		// Report the first failing candidate in submission order.
		for _, f := range failures {
			if f != nil {
				return nil, nil, f
			}
		}
		return nil, nil, err
	}

	var (
		plans []models.DistributionPlan
		notes []models.Bilingual
	)
	index := make(map[string]int)
	for i, c := range bulk {
		feed := resolved[i]
		s.logFeed(actor, c, feed)
		if feed.Renamed() {
			notes = append(notes, renamed(feed.FeedType))
		}

		key := feed.FeedType + "|" + c.when.Date.Format(time.DateOnly)
		if j, ok := index[key]; ok {
			merge(&plans[j], feed)
			continue
		}
		index[key] = len(plans)
		plan := models.DistributionPlan{
			ID:        uuid.NewString(),
			FeedType:  feed.FeedType,
			TotalKg:   feed.QuantityKg,
			Date:      c.when.Date,
			Timestamp: c.when.Timestamp,
			Notes:     deref(c.Notes),
		}
		if feed.Unit.IsCountBased() {
			plan.UnitCount = feed.UnitCount
			plan.CountUnit = feed.Unit
			plan.WeightPerUnitKg = feed.WeightPerUnitKg
		}
		plans = append(plans, plan)
	}

	for i := range plans {
		endOfDay := plans[i].Date.AddDate(0, 0, 1).Add(-time.Nanosecond)
		shares, err := distribution.Distribute(plans[i].TotalKg, distribution.Eligible(roster, endOfDay))
		if err != nil {
			return nil, nil, err
		}
		plans[i].Shares = shares
		s.logger.Info("feed distributed across herd",
			zap.String("farm_id", actor.FarmID),
			zap.String("feed_type", plans[i].FeedType),
			zap.Float64("total_kg", plans[i].TotalKg),
			zap.Int("animals", len(shares)))
	}
	return plans, notes, nil
}

// merge folds another report of the same feed into plan.
func merge(plan *models.DistributionPlan, feed inventory.Resolution) {
	plan.TotalKg += feed.QuantityKg
	if plan.CountUnit != "" && plan.CountUnit == feed.Unit && plan.WeightPerUnitKg == feed.WeightPerUnitKg {
		plan.UnitCount += feed.UnitCount
		return
	}
	plan.UnitCount = 0
	plan.CountUnit = ""
	plan.WeightPerUnitKg = 0
}

func (s *Service) logFeed(actor models.Actor, c candidate, feed inventory.Resolution) {
	s.logger.Info("feed type resolved",
		zap.String("farm_id", actor.FarmID),
		zap.String("spoken", deref(c.FeedType)),
		zap.String("feed_type", feed.FeedType),
		zap.String("strategy", string(feed.Strategy)),
		zap.String("unit", string(feed.Unit)),
		zap.Float64("quantity_kg", feed.QuantityKg))
}

// feedHint carries a feed type chosen by the user in answer to a clarification.
type feedHint struct {
	name   string
	single bool
}

// request builds the inventory request for c. The hint replaces the spoken feed type when the
// report has a single feeding or the oracle left the feed unspecified.
func (h feedHint) request(c candidate) inventory.Request {
	req := inventory.Request{FeedType: c.FeedType, Quantity: c.quantity()}
	if c.Unit != nil {
		req.Unit = *c.Unit
	}
	if h.name != "" && (h.single || c.FeedTypeUnspecified()) {
		name := h.name
		req.FeedType = &name
	}
	return req
}

func renamed(feedType string) models.Bilingual {
	return models.Bilingual{
		FR: fmt.Sprintf("Aliment enregistré sous le nom « %s » de l'inventaire.", feedType),
		EN: fmt.Sprintf("Feed recorded as %q from the inventory.", feedType),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
