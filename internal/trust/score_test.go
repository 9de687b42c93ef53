package trust

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/faithconnect/internal/models"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func fullProfile() models.Business {
	return models.Business{
		Logo:        "logo.png",
		Banner:      "banner.png",
		Description: "Fresh bread baked every morning for the whole congregation and town.",
		Phone:       "+254700000001",
		Email:       "bakery@example.com",
		Address:     "1 Church Road",
		Website:     "https://bakery.example.com",
		FacebookURL: "https://facebook.com/bakery",
	}
}

func TestScoreBounds(t *testing.T) {
	empty := models.Business{BaseModel: models.BaseModel{CreatedAt: now}}
	if got := Score(empty, now); got != 0 {
		t.Fatalf("empty unverified business = %d, want 0", got)
	}

	best := fullProfile()
	best.IsVerified = true
	best.Rating = decimal.NewFromInt(5)
	best.ReviewCount = 12
	best.CreatedAt = now.AddDate(-2, 0, 0)
	if got := Score(best, now); got != 100 {
		t.Fatalf("best business = %d, want 100", got)
	}
}

func TestScoreComponents(t *testing.T) {
	cases := []struct {
		name string
		b    models.Business
		want int
	}{
		{
			name: "verified only",
			b:    models.Business{IsVerified: true, BaseModel: models.BaseModel{CreatedAt: now}},
			want: 40,
		},
		{
			name: "half profile",
			b:    models.Business{Logo: "l", Banner: "b", Phone: "p", Email: "e", BaseModel: models.BaseModel{CreatedAt: now}},
			want: 10,
		},
		{
			name: "few reviews are damped",
			b:    models.Business{Rating: decimal.NewFromInt(4), ReviewCount: 5, BaseModel: models.BaseModel{CreatedAt: now}},
			want: 10,
		},
		{
			name: "half a year old",
			b:    models.Business{BaseModel: models.BaseModel{CreatedAt: now.Add(-time.Duration(365*12) * time.Hour)}},
			want: 8,
		},
		{
			name: "rating above five is clamped",
			b:    models.Business{Rating: decimal.NewFromInt(9), ReviewCount: 10, BaseModel: models.BaseModel{CreatedAt: now}},
			want: 25,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.b, now); got != tc.want {
				t.Fatalf("score = %d, want %d (%+v)", got, tc.want, Compute(tc.b, now))
			}
		})
	}
}

func TestScoreIsMonotonicInVerification(t *testing.T) {
	b := fullProfile()
	b.CreatedAt = now.AddDate(0, -3, 0)
	before := Score(b, now)
	b.IsVerified = true
	after := Score(b, now)
	if after < before {
		t.Fatalf("verification lowered score: %d -> %d", before, after)
	}
}
