package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionKindsAndOfKind(t *testing.T) {
	sub := Submission{
		FarmID:  "farm-1",
		ActorID: "u-1",
		Activities: []ResolvedActivity{
			{ID: "a1", Kind: KindMilking, AnimalID: "cow-1"},
			{ID: "a2", Kind: KindInjection, AnimalID: "cow-2"},
			{ID: "a3", Kind: KindMilking, AnimalID: "cow-2"},
		},
		Plans: []DistributionPlan{{ID: "p1", FeedType: "Hay", TotalKg: 100}},
	}

	assert.Equal(t, []ActivityKind{KindMilking, KindInjection, KindFeeding}, sub.Kinds())

	milking := sub.OfKind(KindMilking)
	assert.Len(t, milking.Activities, 2)
	assert.Empty(t, milking.Plans)
	assert.Equal(t, "farm-1", milking.FarmID)

	feeding := sub.OfKind(KindFeeding)
	assert.Empty(t, feeding.Activities)
	assert.Len(t, feeding.Plans, 1)

	assert.True(t, sub.OfKind(KindCleaning).Empty())
}

func TestBilingualString(t *testing.T) {
	assert.Equal(t, "Bonjour\nHello", Bilingual{FR: "Bonjour", EN: "Hello"}.String())
	assert.Equal(t, "Hello", Bilingual{EN: "Hello"}.String())
	assert.Equal(t, "Bonjour", Bilingual{FR: "Bonjour"}.String())
}

func TestAnimalLabelAndStatus(t *testing.T) {
	assert.Equal(t, "A002 Bessie", Animal{ID: "cow-1", EarTag: "A002", Name: "Bessie"}.Label())
	assert.Equal(t, "A002", Animal{ID: "cow-1", EarTag: "A002"}.Label())
	assert.Equal(t, "Bessie", Animal{ID: "cow-1", Name: "Bessie"}.Label())
	assert.Equal(t, "cow-1", Animal{ID: "cow-1"}.Label())

	assert.True(t, Animal{}.IsActive())
	assert.True(t, Animal{Status: AnimalActive}.IsActive())
	assert.False(t, Animal{Status: AnimalSold}.IsActive())
}

func TestUnitsAndKinds(t *testing.T) {
	assert.True(t, UnitBags.IsCountBased())
	assert.True(t, UnitLiters.IsDirect())
	assert.False(t, Unit("tons").Valid())

	assert.True(t, KindCleaning.Valid())
	assert.False(t, ActivityKind("grazing").Valid())
	assert.False(t, KindFeeding.RequiresAnimal())
	assert.True(t, KindWeightMeasurement.RequiresAnimal())
}

func TestRolesAndApprovalStatus(t *testing.T) {
	assert.True(t, RoleOwner.CanReview())
	assert.True(t, RoleManager.CanReview())
	assert.False(t, RoleFarmhand.CanReview())

	assert.False(t, ApprovalPending.Terminal())
	assert.True(t, ApprovalAutoApproved.Terminal())
	assert.True(t, ApprovalRejected.Terminal())
}
