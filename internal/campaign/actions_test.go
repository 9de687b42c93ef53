package campaign

import (
	"errors"
	"strings"
	"testing"

	"github.com/example/faithconnect/internal/models"
)

func completeSnapshot() models.BusinessSnapshot {
	return models.BusinessSnapshot{
		Business: models.Business{
			Logo:        "logo.png",
			Banner:      "banner.png",
			Description: strings.Repeat("a", 51),
			Phone:       "+254700000001",
			Email:       "shop@example.com",
			Address:     "1 Church Road",
			Website:     "https://shop.example.com",
			TwitterURL:  "https://twitter.com/shop",
			IsVerified:  true,
			ReviewCount: 5,
		},
		ActiveProducts: 5,
		ActiveServices: 5,
		Products:       5,
		Services:       5,
	}
}

func TestSatisfiesEveryActionTypeOnCompleteSnapshot(t *testing.T) {
	snap := completeSnapshot()
	for _, actionType := range models.ActionTypes {
		ok, err := Satisfies(snap, actionType)
		if err != nil {
			t.Fatalf("%s: %v", actionType, err)
		}
		if !ok {
			t.Fatalf("%s should be satisfied", actionType)
		}
	}
}

func TestSatisfiesNothingOnEmptySnapshot(t *testing.T) {
	for _, actionType := range models.ActionTypes {
		ok, err := Satisfies(models.BusinessSnapshot{}, actionType)
		if err != nil {
			t.Fatalf("%s: %v", actionType, err)
		}
		if ok {
			t.Fatalf("%s should not be satisfied", actionType)
		}
	}
}

func TestSatisfiesThresholds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.BusinessSnapshot)
		action models.ActionType
		want   bool
	}{
		{"description of exactly 50 runes", func(s *models.BusinessSnapshot) { s.Business.Description = strings.Repeat("é", 50) }, models.ActionAddDescription, false},
		{"description of 51 runes", func(s *models.BusinessSnapshot) { s.Business.Description = strings.Repeat("é", 51) }, models.ActionAddDescription, true},
		{"inactive products do not count", func(s *models.BusinessSnapshot) { s.Products = 3 }, models.ActionAddProduct, false},
		{"four products", func(s *models.BusinessSnapshot) { s.ActiveProducts = 4 }, models.ActionAdd5Products, false},
		{"five services", func(s *models.BusinessSnapshot) { s.ActiveServices = 5 }, models.ActionAdd5Services, true},
		{"four reviews", func(s *models.BusinessSnapshot) { s.Business.ReviewCount = 4 }, models.ActionGet5Reviews, false},
		{"first review", func(s *models.BusinessSnapshot) { s.Business.ReviewCount = 1 }, models.ActionGetFirstReview, true},
		{"youtube counts as social", func(s *models.BusinessSnapshot) { s.Business.YoutubeURL = "y" }, models.ActionAddSocialLinks, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var snap models.BusinessSnapshot
			tc.mutate(&snap)
			got, err := Satisfies(snap, tc.action)
			if err != nil {
				t.Fatalf("satisfies: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSatisfiesUnknownType(t *testing.T) {
	_, err := Satisfies(completeSnapshot(), models.ActionType("write_poem"))
	var unknown ErrUnknownActionType
	if !errors.As(err, &unknown) || unknown.Type != "write_poem" {
		t.Fatalf("expected ErrUnknownActionType, got %v", err)
	}
}

func TestProfileCompletion(t *testing.T) {
	if got := ProfileCompletion(completeSnapshot()); got != 100 {
		t.Fatalf("complete = %d, want 100", got)
	}

	snap := completeSnapshot()
	snap.Products, snap.Services = 0, 0
	snap.ActiveProducts, snap.ActiveServices = 0, 0
	if got := ProfileCompletion(snap); got != 88 {
		t.Fatalf("without offerings = %d, want 88", got)
	}
	if ok, _ := Satisfies(snap, models.ActionCompleteProfile); ok {
		t.Fatal("complete_profile needs an offering")
	}

	// Inactive offerings still count towards completion.
	snap.Products = 1
	if got := ProfileCompletion(snap); got != 100 {
		t.Fatalf("with inactive product = %d, want 100", got)
	}

	if got := ProfileCompletion(models.BusinessSnapshot{}); got != 0 {
		t.Fatalf("empty = %d, want 0", got)
	}
}
