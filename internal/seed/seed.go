// Package seed loads campaign definitions from YAML and creates the ones
// that do not exist yet.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
)

const dateLayout = "2006-01-02"

type Action struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Points      int    `yaml:"points"`
	Order       int    `yaml:"order"`
}

type Reward struct {
	Type           string `yaml:"type"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	RequiredPoints int    `yaml:"required_points"`
	Icon           string `yaml:"icon"`
	DurationDays   *int   `yaml:"duration_days"`
}

type Campaign struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	Status      string   `yaml:"status"`
	Actions     []Action `yaml:"actions"`
	Rewards     []Reward `yaml:"rewards"`
}

// File is the top-level document.
type File struct {
	Campaigns []Campaign `yaml:"campaigns"`
}

// Store is the part of the campaign repository the seeder writes through.
type Store interface {
	FindCampaignByName(ctx context.Context, name string) (*models.Campaign, error)
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
}

// Load reads and parses a campaign file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a campaign document and rejects unknown fields.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(f.Campaigns) == 0 {
		return nil, errors.New("seed file has no campaigns defined")
	}
	return &f, nil
}

// Build validates one definition and converts it to a model.
func (c Campaign) Build() (*models.Campaign, error) {
	if c.Name == "" {
		return nil, errors.New("campaign name is required")
	}
	starts, err := time.Parse(dateLayout, c.Start)
	if err != nil {
		return nil, fmt.Errorf("campaign %q: invalid start date: %w", c.Name, err)
	}
	ends, err := time.Parse(dateLayout, c.End)
	if err != nil {
		return nil, fmt.Errorf("campaign %q: invalid end date: %w", c.Name, err)
	}
	if !ends.After(starts) {
		return nil, fmt.Errorf("campaign %q: end must be after start", c.Name)
	}

	status := models.CampaignDraft
	if c.Status != "" {
		status = models.CampaignStatus(c.Status)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("campaign %q: unknown status %q", c.Name, c.Status)
	}

	campaign := &models.Campaign{
		Name:        c.Name,
		Description: c.Description,
		StartsAt:    starts.UTC(),
		EndsAt:      ends.UTC(),
		Status:      status,
	}

	seen := make(map[models.ActionType]bool, len(c.Actions))
	for _, a := range c.Actions {
		actionType := models.ActionType(a.Type)
		if !actionType.Valid() {
			return nil, fmt.Errorf("campaign %q: unknown action type %q", c.Name, a.Type)
		}
		if seen[actionType] {
			return nil, fmt.Errorf("campaign %q: action type %q listed twice", c.Name, a.Type)
		}
		seen[actionType] = true
		if a.Points <= 0 {
			return nil, fmt.Errorf("campaign %q: action %q needs positive points", c.Name, a.Type)
		}
		name := a.Name
		if name == "" {
			name = a.Type
		}
		campaign.Actions = append(campaign.Actions, models.CampaignAction{
			ActionType:   actionType,
			Name:         name,
			Description:  a.Description,
			Points:       a.Points,
			DisplayOrder: a.Order,
		})
	}

	for _, r := range c.Rewards {
		rewardType := models.RewardType(r.Type)
		if !rewardType.Valid() {
			return nil, fmt.Errorf("campaign %q: unknown reward type %q", c.Name, r.Type)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("campaign %q: reward name is required", c.Name)
		}
		if r.RequiredPoints <= 0 {
			return nil, fmt.Errorf("campaign %q: reward %q needs positive required points", c.Name, r.Name)
		}
		if r.DurationDays != nil && *r.DurationDays <= 0 {
			return nil, fmt.Errorf("campaign %q: reward %q needs a positive duration", c.Name, r.Name)
		}
		campaign.Rewards = append(campaign.Rewards, models.Reward{
			Type:           rewardType,
			Name:           r.Name,
			Description:    r.Description,
			RequiredPoints: r.RequiredPoints,
			IconURL:        r.Icon,
			DurationDays:   r.DurationDays,
		})
	}

	return campaign, nil
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Apply validates every definition first, then creates campaigns whose name
// is not taken. Existing campaigns are left untouched.
func Apply(ctx context.Context, store Store, f *File) (Result, error) {
	var result Result

	built := make([]*models.Campaign, 0, len(f.Campaigns))
	for _, c := range f.Campaigns {
		campaign, err := c.Build()
		if err != nil {
			return result, err
		}
		built = append(built, campaign)
	}

	for _, campaign := range built {
		_, err := store.FindCampaignByName(ctx, campaign.Name)
		if err == nil {
			log.Printf("[Seed] campaign %q already exists, skipping", campaign.Name)
			result.Skipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return result, fmt.Errorf("looking up campaign %q: %w", campaign.Name, err)
		}

		if err := store.CreateCampaign(ctx, campaign); err != nil {
			return result, fmt.Errorf("creating campaign %q: %w", campaign.Name, err)
		}
		log.Printf("[Seed] created campaign %q with %d actions and %d rewards", campaign.Name, len(campaign.Actions), len(campaign.Rewards))
		result.Created++
	}

	return result, nil
}
