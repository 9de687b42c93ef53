package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LeaderboardEntry is one business's standing in a campaign.
type LeaderboardEntry struct {
	BusinessID       string `db:"business_id" json:"business_id"`
	BusinessName     string `db:"business_name" json:"business_name"`
	IsVerified       bool   `db:"is_verified" json:"is_verified"`
	PointsEarned     int    `db:"points_earned" json:"points_earned"`
	ActionsCompleted int    `db:"actions_completed" json:"actions_completed"`
	Completed        bool   `db:"completed" json:"is_completed"`
}

// Leaderboard runs read-only ranking queries with sqlx over the shared pool.
type Leaderboard struct {
	db *sqlx.DB
}

// NewLeaderboard wraps an existing *sql.DB. driverName selects the bindvar style.
func NewLeaderboard(db *sql.DB, driverName string) *Leaderboard {
	return &Leaderboard{db: sqlx.NewDb(db, driverName)}
}

// Top returns the highest scoring businesses in a campaign.
func (l *Leaderboard) Top(ctx context.Context, campaignID uuid.UUID, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := l.db.Rebind(`
		SELECT p.business_id, b.name AS business_name, b.is_verified,
		       p.points_earned, COUNT(ca.id) AS actions_completed, p.completed
		FROM business_campaign_progress p
		JOIN businesses b ON b.id = p.business_id
		LEFT JOIN completed_actions ca ON ca.progress_id = p.id
		WHERE p.campaign_id = ? AND b.is_active = ?
		GROUP BY p.id, p.business_id, b.name, b.is_verified, p.points_earned, p.completed, p.last_activity_at
		ORDER BY p.points_earned DESC, p.last_activity_at ASC
		LIMIT ?
	`)

	var entries []LeaderboardEntry
	if err := l.db.SelectContext(ctx, &entries, query, campaignID.String(), true, limit); err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}
