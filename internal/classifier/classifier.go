// Package classifier turns raw measurements into a maturity verdict. The
// rule table below stands in for the eventual ML model; everything downstream
// depends only on the Classifier interface so a model-backed implementation
// can be swapped in without touching ingest or analytics.
package classifier

import (
	"time"

	"agrisense-backend/internal/store"
)

type Input struct {
	SucroseLevel *float64
	Temperature  *float64
	Humidity     *float64
	SoilMoisture *float64
}

type Result struct {
	Score                float64
	Status               store.MaturityStatus
	PredictedHarvestDate time.Time
}

type Classifier interface {
	Classify(in Input) Result
}

// RuleClassifier is the deterministic rule-table implementation. Pure and
// total: missing inputs degrade to the immature default, it never fails.
type RuleClassifier struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (c RuleClassifier) Classify(in Input) Result {
	score := 0.0
	status := store.MaturityImmature
	daysToHarvest := 30

	if in.SucroseLevel != nil {
		switch s := *in.SucroseLevel; {
		case s >= 18:
			score, status, daysToHarvest = 95, store.MaturityReady, 0
		case s >= 15:
			score, status, daysToHarvest = 75, store.MaturityMaturing, 7
		case s >= 12:
			score, status, daysToHarvest = 50, store.MaturityMaturing, 14
		default:
			score, status, daysToHarvest = 30, store.MaturityImmature, 25
		}
	}

	// Environmental penalties adjust the score only. The status keeps the
	// label its sucrose bracket assigned even when the penalized score falls
	// below that bracket; the source rule table behaves this way and the
	// asymmetry is kept on purpose.
	if in.Temperature != nil && *in.Temperature > 30 {
		score -= 5
	}
	if in.Humidity != nil && *in.Humidity < 60 {
		score -= 3
	}
	if in.SoilMoisture != nil && *in.SoilMoisture < 40 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	return Result{
		Score:                score,
		Status:               status,
		PredictedHarvestDate: now().UTC().AddDate(0, 0, daysToHarvest),
	}
}
