package ingestion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

var kindLabels = map[models.ActivityKind]models.Bilingual{
	models.KindMilking:           {FR: "traite", EN: "milking"},
	models.KindFeeding:           {FR: "alimentation", EN: "feeding"},
	models.KindHealthObservation: {FR: "observation de santé", EN: "health observation"},
	models.KindWeightMeasurement: {FR: "pesée", EN: "weight measurement"},
	models.KindInjection:         {FR: "injection", EN: "injection"},
	models.KindCleaning:          {FR: "nettoyage", EN: "cleaning"},
}

const deadlineLayout = "2006-01-02 15:04 UTC"

// acknowledge builds the committed or queued response for a routed submission.
func acknowledge(sub models.Submission, queued map[models.ActivityKind]models.PendingApproval, notes []models.Bilingual) models.IngestResult {
	res := models.IngestResult{Outcome: models.OutcomeCommitted}

	for _, a := range sub.Activities {
		summary := models.ActivitySummary{
			Kind:     a.Kind,
			AnimalID: a.AnimalID,
			Animal:   a.AnimalLabel,
			FeedType: a.FeedType,
			Quantity: a.Quantity,
			Unit:     unitOf(a.Kind),
			Date:     a.Date,
		}
		if p, ok := queued[a.Kind]; ok {
			summary.Queued = true
			summary.ApprovalID = p.ID
		}
		res.Activities = append(res.Activities, summary)
	}
	for _, p := range sub.Plans {
		summary := models.ActivitySummary{
			Kind:       models.KindFeeding,
			FeedType:   p.FeedType,
			Quantity:   p.TotalKg,
			Unit:       models.UnitKilograms,
			AnimalsFed: len(p.Shares),
			Date:       p.Date,
		}
		if pending, ok := queued[models.KindFeeding]; ok {
			summary.Queued = true
			summary.ApprovalID = pending.ID
		}
		res.Activities = append(res.Activities, summary)
	}

	var deadline *time.Time
	for _, p := range queued {
		if deadline == nil || p.Deadline.Before(*deadline) {
			d := p.Deadline
			deadline = &d
		}
	}

	var committedFR, committedEN, queuedFR, queuedEN []string
	for _, s := range res.Activities {
		fr, en := describe(s)
		if s.Queued {
			queuedFR, queuedEN = append(queuedFR, fr), append(queuedEN, en)
			continue
		}
		committedFR, committedEN = append(committedFR, fr), append(committedEN, en)
	}

	var fr, en []string
	if len(committedFR) > 0 {
		fr = append(fr, "Activité enregistrée : "+strings.Join(committedFR, " ; ")+".")
		en = append(en, "Activity recorded: "+strings.Join(committedEN, "; ")+".")
	}
	if deadline != nil {
		res.Outcome = models.OutcomeQueued
		res.Deadline = deadline
		at := deadline.UTC().Format(deadlineLayout)
		fr = append(fr, fmt.Sprintf("En attente de validation par un gérant (validation automatique le %s) : %s.", at, strings.Join(queuedFR, " ; ")))
		en = append(en, fmt.Sprintf("Awaiting manager approval (auto-approved on %s): %s.", at, strings.Join(queuedEN, "; ")))
	}
	for _, n := range notes {
		fr = append(fr, n.FR)
		en = append(en, n.EN)
	}

	res.Message = models.Bilingual{FR: strings.Join(fr, " "), EN: strings.Join(en, " ")}
	return res
}

// notQueued tells the sender that one kind was neither recorded nor queued and must be resent.
func notQueued(kind models.ActivityKind) models.Bilingual {
	label := kindLabels[kind]
	return models.Bilingual{
		FR: fmt.Sprintf("L'activité %s n'a pas pu être mise en attente de validation ; merci de la renvoyer.", label.FR),
		EN: fmt.Sprintf("The %s activity could not be queued for approval; please send it again.", label.EN),
	}
}

// failure converts a classified error into a rejected or clarification response.
func failure(e *errs.Error) models.IngestResult {
	outcome := models.OutcomeRejected
	if e.Kind.NeedsClarification() {
		outcome = models.OutcomeClarification
	}
	return models.IngestResult{
		Outcome:   outcome,
		Code:      e.Code,
		ErrorKind: string(e.Kind),
		Message:   e.Message,
		Options:   e.Options,
		Retryable: e.Kind.Retryable(),
	}
}

func describe(s models.ActivitySummary) (string, string) {
	label := kindLabels[s.Kind]
	fr, en := label.FR, label.EN
	if s.Animal != "" {
		fr += " " + s.Animal
		en += " " + s.Animal
	}
	if s.Quantity > 0 && s.Unit != "" {
		qty := formatQuantity(s.Quantity) + " " + unitSymbol(s.Unit)
		fr += ", " + qty
		en += ", " + qty
	}
	if s.FeedType != "" {
		fr += " de " + s.FeedType
		en += " of " + s.FeedType
	}
	if s.AnimalsFed > 0 {
		fr += fmt.Sprintf(" répartis sur %d animaux", s.AnimalsFed)
		en += fmt.Sprintf(" across %d animals", s.AnimalsFed)
	}
	return fr, en
}

func unitOf(kind models.ActivityKind) models.Unit {
	switch kind {
	case models.KindMilking:
		return models.UnitLiters
	case models.KindFeeding, models.KindWeightMeasurement:
		return models.UnitKilograms
	default:
		return ""
	}
}

func unitSymbol(u models.Unit) string {
	if u == models.UnitLiters {
		return "L"
	}
	return string(u)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(math.Round(q*100)/100, 'f', -1, 64)
}
