// Package trust computes the 0..100 business reputation score.
package trust

import (
	"math"
	"time"

	"github.com/example/faithconnect/internal/models"
)

// Component weights. They sum to 100.
const (
	VerificationWeight = 40.0
	ProfileWeight      = 20.0
	ReviewWeight       = 25.0
	AgeWeight          = 15.0

	reviewSaturation = 10
	maxRating        = 5.0
	daysPerYear      = 365.0
)

// Breakdown is the per-component score.
type Breakdown struct {
	Verification float64 `json:"verification"`
	Profile      float64 `json:"profile_completeness"`
	Reviews      float64 `json:"review_quality"`
	AccountAge   float64 `json:"account_age"`
	Score        int     `json:"trust_score"`
}

// Compute scores b at now.
func Compute(b models.Business, now time.Time) Breakdown {
	var out Breakdown

	if b.IsVerified {
		out.Verification = VerificationWeight
	}

	fields := []bool{
		b.Logo != "",
		b.Banner != "",
		b.Description != "",
		b.Phone != "",
		b.Email != "",
		b.Address != "",
		b.Website != "",
		b.HasSocialLinks(),
	}
	present := 0
	for _, ok := range fields {
		if ok {
			present++
		}
	}
	out.Profile = ProfileWeight * float64(present) / float64(len(fields))

	rating, _ := b.Rating.Float64()
	rating = math.Max(0, math.Min(maxRating, rating))
	reviews := math.Min(float64(b.ReviewCount), reviewSaturation)
	if reviews < 0 {
		reviews = 0
	}
	out.Reviews = rating * (reviews / reviewSaturation) * (ReviewWeight / maxRating)

	if !b.CreatedAt.IsZero() {
		days := now.Sub(b.CreatedAt).Hours() / 24
		if days > 0 {
			out.AccountAge = math.Min(AgeWeight, days/daysPerYear*AgeWeight)
		}
	}

	total := out.Verification + out.Profile + out.Reviews + out.AccountAge
	out.Score = int(math.Round(math.Max(0, math.Min(100, total))))
	return out
}

// Score returns only the total.
func Score(b models.Business, now time.Time) int {
	return Compute(b, now).Score
}
