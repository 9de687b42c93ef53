package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/faithconnect/internal/database"
	"github.com/example/faithconnect/internal/models"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createAccount(t *testing.T, repo *AccountRepository, phone string) *models.Account {
	t.Helper()
	pending := &models.PendingRegistration{Phone: models.StringPtr(phone), FirstName: "Grace"}
	if err := repo.ReplacePending(context.Background(), pending); err != nil {
		t.Fatalf("replace pending: %v", err)
	}
	account := &models.Account{Phone: models.StringPtr(phone), FirstName: "Grace", UserType: models.UserTypeMember, IsActive: true}
	if err := repo.PromotePending(context.Background(), pending, account); err != nil {
		t.Fatalf("promote: %v", err)
	}
	return account
}

func TestReplacePendingRemovesPriorRegistration(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t))

	first := &models.PendingRegistration{Phone: models.StringPtr("+254700000001"), FirstName: "A"}
	if err := repo.ReplacePending(ctx, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	second := &models.PendingRegistration{Phone: models.StringPtr("+254700000001"), Email: models.StringPtr("a@example.com"), FirstName: "B"}
	if err := repo.ReplacePending(ctx, second); err != nil {
		t.Fatalf("second: %v", err)
	}

	got, err := repo.FindPendingByIdentifier(ctx, "+254700000001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != second.ID || got.FirstName != "B" {
		t.Fatalf("expected replacement, got %+v", got)
	}
	byEmail, err := repo.FindPendingByIdentifier(ctx, "a@example.com")
	if err != nil || byEmail.ID != second.ID {
		t.Fatalf("find by email: %v %+v", err, byEmail)
	}
}

func TestPromotePendingCreatesAccountAndDeletesPending(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t))

	account := createAccount(t, repo, "+254700000002")

	if _, err := repo.FindPendingByIdentifier(ctx, "+254700000002"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending should be gone, got %v", err)
	}
	found, err := repo.FindAccountByIdentifier(ctx, "+254700000002")
	if err != nil || found.ID != account.ID {
		t.Fatalf("find account: %v", err)
	}
	phoneTaken, emailTaken, err := repo.IdentifiersTaken(ctx, "+254700000002", "nobody@example.com")
	if err != nil || !phoneTaken || emailTaken {
		t.Fatalf("taken = %v %v %v", phoneTaken, emailTaken, err)
	}
}

func TestPromotePendingConflictKeepsPending(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t))
	createAccount(t, repo, "+254700000003")

	pending := &models.PendingRegistration{Phone: models.StringPtr("+254700000003"), FirstName: "Late"}
	if err := repo.ReplacePending(ctx, pending); err != nil {
		t.Fatalf("replace: %v", err)
	}
	err := repo.PromotePending(ctx, pending, &models.Account{Phone: models.StringPtr("+254700000003"), UserType: models.UserTypeMember})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := repo.FindPendingByIdentifier(ctx, "+254700000003"); err != nil {
		t.Fatalf("pending must survive a failed promotion: %v", err)
	}
}

func TestPromotePendingAlreadyConsumed(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t))

	ghost := &models.PendingRegistration{BaseModel: models.BaseModel{ID: uuid.New()}}
	err := repo.PromotePending(ctx, ghost, &models.Account{Phone: models.StringPtr("+254700000004"), UserType: models.UserTypeMember})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := repo.FindAccountByIdentifier(ctx, "+254700000004"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account insert must roll back, got %v", err)
	}
}

func seedBusiness(t *testing.T, db *gorm.DB) (*models.Account, *models.Business) {
	t.Helper()
	account := createAccount(t, NewAccountRepository(db), "+2547"+uuid.NewString()[:8])
	business := &models.Business{AccountID: account.ID, Name: "Grace Bakery", IsActive: true}
	if err := NewBusinessRepository(db).Create(context.Background(), business); err != nil {
		t.Fatalf("create business: %v", err)
	}
	return account, business
}

func TestBusinessQuotas(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewBusinessRepository(db)
	account, business := seedBusiness(t, db)

	owner, err := NewAccountRepository(db).FindAccountByID(ctx, account.ID)
	if err != nil || owner.UserType != models.UserTypeBusinessOwner {
		t.Fatalf("owner should become business_owner: %v %+v", err, owner)
	}

	if err := repo.Create(ctx, &models.Business{AccountID: account.ID, Name: "Second"}); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected business limit, got %v", err)
	}

	for i := 0; i < models.MaxProductsPerBusiness; i++ {
		if err := repo.AddProduct(ctx, &models.Product{BusinessID: business.ID, Name: "P", IsActive: true}); err != nil {
			t.Fatalf("add product %d: %v", i, err)
		}
	}
	if err := repo.AddProduct(ctx, &models.Product{BusinessID: business.ID, Name: "P6"}); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected product limit, got %v", err)
	}

	limits, err := repo.Limits(ctx, account.ID)
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if limits.Businesses != 1 || limits.Products != 5 || limits.Services != 0 {
		t.Fatalf("limits = %+v", limits)
	}

	snap, err := repo.Snapshot(ctx, business.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ActiveProducts != 5 || snap.Products != 5 || snap.Owner.ID != account.ID {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestAddReviewRecomputesRating(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewBusinessRepository(db)
	_, business := seedBusiness(t, db)

	for _, rating := range []int{5, 4} {
		if err := repo.AddReview(ctx, &models.Review{BusinessID: business.ID, AccountID: uuid.New(), Rating: rating}); err != nil {
			t.Fatalf("add review: %v", err)
		}
	}

	got, err := repo.FindByID(ctx, business.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ReviewCount != 2 {
		t.Fatalf("review count = %d", got.ReviewCount)
	}
	if got.Rating.String() != "4.5" {
		t.Fatalf("rating = %s, want 4.5", got.Rating)
	}
}

func seedCampaign(t *testing.T, repo *CampaignRepository) *models.Campaign {
	t.Helper()
	days := 7
	campaign := &models.Campaign{
		Name:     "Profile Push",
		StartsAt: testNow.Add(-24 * time.Hour),
		EndsAt:   testNow.Add(30 * 24 * time.Hour),
		Status:   models.CampaignActive,
		Actions: []models.CampaignAction{
			{ActionType: models.ActionAddLogo, Name: "Logo", Points: 10, DisplayOrder: 1},
			{ActionType: models.ActionAddBanner, Name: "Banner", Points: 15, DisplayOrder: 2},
		},
		Rewards: []models.Reward{
			{Type: models.RewardFeatured, Name: "Week on homepage", RequiredPoints: 20, DurationDays: &days},
		},
	}
	if err := repo.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return campaign
}

func TestCampaignProgressLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewCampaignRepository(db)
	_, business := seedBusiness(t, db)
	campaign := seedCampaign(t, repo)

	if campaign.TotalPointsAvailable != 25 {
		t.Fatalf("total points = %d", campaign.TotalPointsAvailable)
	}

	active, err := repo.ActiveCampaigns(ctx, testNow)
	if err != nil || len(active) != 1 {
		t.Fatalf("active campaigns: %v %d", err, len(active))
	}
	if len(active[0].Actions) != 2 || active[0].Actions[0].ActionType != models.ActionAddLogo {
		t.Fatalf("actions not ordered: %+v", active[0].Actions)
	}
	if none, _ := repo.ActiveCampaigns(ctx, testNow.Add(60*24*time.Hour)); len(none) != 0 {
		t.Fatal("campaign should not be active after its end")
	}

	progress, created, err := repo.EnsureProgress(ctx, business.ID, campaign.ID, testNow)
	if err != nil || !created {
		t.Fatalf("ensure progress: %v created=%v", err, created)
	}
	again, created, err := repo.EnsureProgress(ctx, business.ID, campaign.ID, testNow)
	if err != nil || created || again.ID != progress.ID {
		t.Fatalf("second ensure: %v created=%v", err, created)
	}
	reloaded, _ := repo.FindCampaign(ctx, campaign.ID)
	if reloaded.ParticipantsCount != 1 {
		t.Fatalf("participants = %d, want 1", reloaded.ParticipantsCount)
	}

	logo := active[0].Actions[0]
	awarded, points, err := repo.AwardAction(ctx, &models.CompletedAction{ProgressID: progress.ID, ActionID: logo.ID, PointsEarned: 10, CompletedAt: testNow})
	if err != nil || !awarded || points != 10 {
		t.Fatalf("award: %v awarded=%v points=%d", err, awarded, points)
	}
	awarded, points, err = repo.AwardAction(ctx, &models.CompletedAction{ProgressID: progress.ID, ActionID: logo.ID, PointsEarned: 10, CompletedAt: testNow})
	if err != nil || awarded || points != 10 {
		t.Fatalf("duplicate award must be a no-op: %v awarded=%v points=%d", err, awarded, points)
	}

	done, err := repo.CompletedActionIDs(ctx, progress.ID)
	if err != nil || !done[logo.ID] || len(done) != 1 {
		t.Fatalf("completed ids = %v %v", done, err)
	}

	reward := active[0].Rewards[0]
	award := &models.AwardedReward{BusinessID: business.ID, RewardID: reward.ID, ProgressID: progress.ID, AwardedAt: testNow, IsActive: true}
	featured := &models.FeaturedBusiness{BusinessID: business.ID, StartsAt: testNow, EndsAt: testNow.Add(7 * 24 * time.Hour), Priority: 5, OnHomepage: true, InDirectory: true}
	granted, err := repo.GrantReward(ctx, award, featured)
	if err != nil || !granted {
		t.Fatalf("grant: %v %v", err, granted)
	}
	granted, err = repo.GrantReward(ctx, &models.AwardedReward{BusinessID: business.ID, RewardID: reward.ID, ProgressID: progress.ID, AwardedAt: testNow}, &models.FeaturedBusiness{BusinessID: business.ID, StartsAt: testNow, EndsAt: testNow.Add(time.Hour)})
	if err != nil || granted {
		t.Fatalf("second grant must be a no-op: %v %v", err, granted)
	}

	held, err := repo.AwardedRewardIDs(ctx, business.ID)
	if err != nil || !held[reward.ID] {
		t.Fatalf("awarded ids = %v %v", held, err)
	}

	homepage, err := repo.ActiveFeatured(ctx, testNow.Add(time.Hour), FeaturedHomepage, 6)
	if err != nil || len(homepage) != 1 || homepage[0].Business.Name != "Grace Bakery" {
		t.Fatalf("featured = %+v %v", homepage, err)
	}
	category, err := repo.ActiveFeatured(ctx, testNow.Add(time.Hour), FeaturedCategory, 0)
	if err != nil || len(category) != 0 {
		t.Fatalf("category featured = %+v %v", category, err)
	}

	rewards, err := repo.RewardsForBusiness(ctx, business.ID)
	if err != nil || len(rewards) != 1 || rewards[0].Reward.Name != "Week on homepage" {
		t.Fatalf("rewards = %+v %v", rewards, err)
	}

	if err := repo.MarkProgressCompleted(ctx, progress.ID, testNow); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	withActions, err := repo.ProgressWithActions(ctx, progress.ID)
	if err != nil || !withActions.Completed || len(withActions.CompletedActions) != 1 {
		t.Fatalf("progress = %+v %v", withActions, err)
	}

	sqlDB, _ := db.DB()
	board, err := NewLeaderboard(sqlDB, "sqlite").Top(ctx, campaign.ID, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].PointsEarned != 10 || board[0].ActionsCompleted != 1 {
		t.Fatalf("leaderboard = %+v", board)
	}
}

func TestRewardsForBusinessSkipsInactive(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewCampaignRepository(db)
	_, business := seedBusiness(t, db)
	campaign := seedCampaign(t, repo)

	progress, _, err := repo.EnsureProgress(ctx, business.ID, campaign.ID, testNow)
	if err != nil {
		t.Fatalf("ensure progress: %v", err)
	}
	badge := &models.Reward{CampaignID: campaign.ID, Type: models.RewardBadge, Name: "Early Adopter", RequiredPoints: 5}
	if err := repo.AddReward(ctx, badge); err != nil {
		t.Fatalf("add reward: %v", err)
	}

	live := &models.AwardedReward{BusinessID: business.ID, RewardID: campaign.Rewards[0].ID, ProgressID: progress.ID, AwardedAt: testNow, IsActive: true}
	revoked := &models.AwardedReward{BusinessID: business.ID, RewardID: badge.ID, ProgressID: progress.ID, AwardedAt: testNow, IsActive: false}
	for _, award := range []*models.AwardedReward{live, revoked} {
		if granted, err := repo.GrantReward(ctx, award, nil); err != nil || !granted {
			t.Fatalf("grant: %v %v", err, granted)
		}
	}

	rewards, err := repo.RewardsForBusiness(ctx, business.ID)
	if err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if len(rewards) != 1 || rewards[0].RewardID != live.RewardID {
		t.Fatalf("rewards = %+v, want only the active award", rewards)
	}
}

func TestAddActionRejectsDuplicateTypeAndRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	repo := NewCampaignRepository(openTestDB(t))
	campaign := seedCampaign(t, repo)

	if err := repo.AddAction(ctx, &models.CampaignAction{CampaignID: campaign.ID, ActionType: models.ActionAddLogo, Name: "Again", Points: 5}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.AddAction(ctx, &models.CampaignAction{CampaignID: campaign.ID, ActionType: models.ActionGetVerified, Name: "Verify", Points: 30}); err != nil {
		t.Fatalf("add action: %v", err)
	}
	got, err := repo.FindCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TotalPointsAvailable != 55 {
		t.Fatalf("total = %d, want 55", got.TotalPointsAvailable)
	}
}

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewNotificationRepository(db)
	account := createAccount(t, NewAccountRepository(db), "+254700000009")

	for i := 0; i < 3; i++ {
		if err := repo.CreateNotification(ctx, &models.Notification{
			AccountID: account.ID,
			Category:  models.CategoryCampaign,
			Title:     "Action Completed",
			Data:      map[string]interface{}{"points": i},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := repo.List(ctx, account.ID, false, 0, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("list = %d/%d %v", len(items), total, err)
	}

	if err := repo.MarkRead(ctx, account.ID, items[0].ID, testNow); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.MarkRead(ctx, uuid.New(), items[1].ID, testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other account must not mark read, got %v", err)
	}
	unread, _ := repo.UnreadCount(ctx, account.ID)
	if unread != 2 {
		t.Fatalf("unread = %d", unread)
	}
	changed, err := repo.MarkAllRead(ctx, account.ID, testNow)
	if err != nil || changed != 2 {
		t.Fatalf("mark all = %d %v", changed, err)
	}

	prefs, err := repo.PreferencesFor(ctx, account.ID)
	if err != nil || !prefs.SMSCampaign || prefs.SMSLowTrustScore {
		t.Fatalf("default prefs = %+v %v", prefs, err)
	}
	prefs.SMSCampaign = false
	if err := repo.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	again, err := repo.PreferencesFor(ctx, account.ID)
	if err != nil || again.SMSCampaign || again.ID != prefs.ID {
		t.Fatalf("prefs not persisted: %+v %v", again, err)
	}
}
