package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/campaign"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/services"
	"github.com/example/faithconnect/internal/trust"
)

// Notifier delivers account notifications.
type Notifier interface {
	Notify(ctx context.Context, notice services.Notice) error
}

// BusinessAlerter tells admins about new listings.
type BusinessAlerter interface {
	NotifyNewBusiness(ctx context.Context, alert services.BusinessAlert) error
}

// BusinessHandler manages business listings, offerings and reviews.
type BusinessHandler struct {
	businesses *repository.BusinessRepository
	accounts   *repository.AccountRepository
	hook       StateChangeHook
	notifier   Notifier
	alerter    BusinessAlerter
}

// NewBusinessHandler constructs BusinessHandler. alerter may be nil.
func NewBusinessHandler(businesses *repository.BusinessRepository, accounts *repository.AccountRepository, hook StateChangeHook, notifier Notifier, alerter BusinessAlerter) *BusinessHandler {
	return &BusinessHandler{businesses: businesses, accounts: accounts, hook: hook, notifier: notifier, alerter: alerter}
}

type businessRequest struct {
	Name         *string `json:"business_name"`
	Description  *string `json:"description"`
	Logo         *string `json:"logo"`
	Banner       *string `json:"image"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Address      *string `json:"address"`
	Website      *string `json:"website"`
	FacebookURL  *string `json:"facebook_url"`
	InstagramURL *string `json:"instagram_url"`
	TwitterURL   *string `json:"twitter_url"`
	LinkedinURL  *string `json:"linkedin_url"`
	YoutubeURL   *string `json:"youtube_url"`
}

// updates maps the supplied fields to columns.
func (r businessRequest) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	for column, value := range map[string]*string{
		"name":          r.Name,
		"description":   r.Description,
		"logo":          r.Logo,
		"banner":        r.Banner,
		"phone":         r.Phone,
		"email":         r.Email,
		"address":       r.Address,
		"website":       r.Website,
		"facebook_url":  r.FacebookURL,
		"instagram_url": r.InstagramURL,
		"twitter_url":   r.TwitterURL,
		"linkedin_url":  r.LinkedinURL,
		"youtube_url":   r.YoutubeURL,
	} {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	return updates
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// CreateBusiness lists a new business for the current account.
func (h *BusinessHandler) CreateBusiness(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req businessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if str(req.Name) == "" {
		return apperr.New(apperr.CodeValidationFailed, "Business name is required")
	}

	business := models.Business{
		AccountID:    userID,
		Name:         str(req.Name),
		Description:  str(req.Description),
		Logo:         str(req.Logo),
		Banner:       str(req.Banner),
		Phone:        str(req.Phone),
		Email:        strings.ToLower(str(req.Email)),
		Address:      str(req.Address),
		Website:      str(req.Website),
		FacebookURL:  str(req.FacebookURL),
		InstagramURL: str(req.InstagramURL),
		TwitterURL:   str(req.TwitterURL),
		LinkedinURL:  str(req.LinkedinURL),
		YoutubeURL:   str(req.YoutubeURL),
		IsActive:     true,
	}

	if err := h.businesses.Create(c.UserContext(), &business); err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			return apperr.New(apperr.CodeQuotaExceeded, fmt.Sprintf("You can only create %d business profile", models.MaxBusinessesPerAccount))
		}
		return err
	}

	h.alertNewBusiness(business)
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": business})
}

func (h *BusinessHandler) alertNewBusiness(business models.Business) {
	if h.alerter == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		alert := services.BusinessAlert{
			BusinessID:   business.ID.String(),
			BusinessName: business.Name,
			Address:      business.Address,
		}
		if owner, err := h.accounts.FindAccountByID(ctx, business.AccountID); err == nil {
			alert.OwnerName = owner.DisplayName()
			alert.OwnerPhone = owner.PhoneNumber()
			alert.OwnerEmail = owner.EmailAddress()
		}

		if err := h.alerter.NotifyNewBusiness(ctx, alert); err != nil {
			log.Printf("[Business] Telegram notification failed: %v", err)
		}
	}()
}

func (h *BusinessHandler) myBusiness(c *fiber.Ctx) (*models.Business, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}

	business, err := h.businesses.FindByAccount(c.UserContext(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "You have no business profile")
	}
	return business, err
}

// GetMyBusiness returns the current account's business.
func (h *BusinessHandler) GetMyBusiness(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": business})
}

// UpdateMyBusiness edits the current account's business.
func (h *BusinessHandler) UpdateMyBusiness(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}

	var req businessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	updates := req.updates()
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	if name, ok := updates["name"]; ok && name == "" {
		return apperr.New(apperr.CodeValidationFailed, "Business name cannot be empty")
	}
	if email, ok := updates["email"].(string); ok {
		updates["email"] = strings.ToLower(email)
	}

	if err := h.businesses.Update(c.UserContext(), business.ID, updates); err != nil {
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	updated, err := h.businesses.FindByID(c.UserContext(), business.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": updated})
}

// GetLimits reports quota usage.
func (h *BusinessHandler) GetLimits(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	limits, err := h.businesses.Limits(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    limits,
		"remaining": fiber.Map{
			"businesses": remaining(limits.BusinessesAllowed, limits.Businesses),
			"products":   remaining(limits.ProductsAllowed, limits.Products),
			"services":   remaining(limits.ServicesAllowed, limits.Services),
		},
	})
}

func remaining(allowed int, used int64) int64 {
	if left := int64(allowed) - used; left > 0 {
		return left
	}
	return 0
}

// GetStats returns the trust breakdown and engagement numbers of my business.
func (h *BusinessHandler) GetStats(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}

	snap, err := h.businesses.Snapshot(c.UserContext(), business.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"trust":              trust.Compute(*business, now()),
			"profile_completion": campaign.ProfileCompletion(snap),
			"views":              business.ViewCount,
			"rating":             business.Rating,
			"review_count":       business.ReviewCount,
			"products":           snap.Products,
			"services":           snap.Services,
			"is_verified":        business.IsVerified,
		},
	})
}

// GetBusiness is the public view of a business.
func (h *BusinessHandler) GetBusiness(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	business, err := h.businesses.FindByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !business.IsActive) {
		return apperr.New(apperr.CodeNotFound, "Business not found")
	}
	if err != nil {
		return err
	}

	if err := h.businesses.IncrementViews(c.UserContext(), id); err != nil {
		log.Printf("[Business] failed to count view for %s: %v", id, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"data":        business,
		"trust_score": trust.Score(*business, now()),
	})
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       *string `json:"price"`
	Currency    string  `json:"currency"`
	InStock     *bool   `json:"in_stock"`
}

// AddProduct adds a product to my business.
func (h *BusinessHandler) AddProduct(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperr.New(apperr.CodeValidationFailed, "Product name is required")
	}

	price := decimal.Zero
	if req.Price != nil && *req.Price != "" {
		price, err = decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return apperr.New(apperr.CodeValidationFailed, "Price must be a non-negative number")
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "KES"
	}

	product := models.Product{
		BusinessID:  business.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       price.Round(2),
		Currency:    currency,
		InStock:     req.InStock == nil || *req.InStock,
		IsActive:    true,
	}
	if err := h.businesses.AddProduct(c.UserContext(), &product); err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			return apperr.New(apperr.CodeQuotaExceeded, fmt.Sprintf("You can only add up to %d products", models.MaxProductsPerBusiness))
		}
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct removes a product from my business.
func (h *BusinessHandler) DeleteProduct(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.businesses.DeleteProduct(c.UserContext(), business.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Product not found")
		}
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

type serviceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceRange  string `json:"price_range"`
	Duration    string `json:"duration"`
}

// AddService adds a service to my business.
func (h *BusinessHandler) AddService(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}

	var req serviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperr.New(apperr.CodeValidationFailed, "Service name is required")
	}

	service := models.Service{
		BusinessID:  business.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		PriceRange:  strings.TrimSpace(req.PriceRange),
		Duration:    strings.TrimSpace(req.Duration),
		IsActive:    true,
	}
	if err := h.businesses.AddService(c.UserContext(), &service); err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			return apperr.New(apperr.CodeQuotaExceeded, fmt.Sprintf("You can only add up to %d services", models.MaxServicesPerBusiness))
		}
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": service})
}

// DeleteService removes a service from my business.
func (h *BusinessHandler) DeleteService(c *fiber.Ctx) error {
	business, err := h.myBusiness(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.businesses.DeleteService(c.UserContext(), business.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Service not found")
		}
		return err
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), business.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// AddReview rates a business the current account does not own.
func (h *BusinessHandler) AddReview(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return apperr.New(apperr.CodeValidationFailed, "Rating must be between 1 and 5")
	}

	business, err := h.businesses.FindByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.CodeNotFound, "Business not found")
	}
	if err != nil {
		return err
	}
	if business.AccountID == userID {
		return apperr.New(apperr.CodeForbidden, "You cannot review your own business")
	}

	review := models.Review{
		BusinessID: id,
		AccountID:  userID,
		Rating:     req.Rating,
		Text:       strings.TrimSpace(req.Text),
	}
	if err := h.businesses.AddReview(c.UserContext(), &review); err != nil {
		return err
	}

	h.notifyOwner(c.UserContext(), business, services.Notice{
		Category: models.CategoryNewReview,
		Title:    "New review",
		Message:  fmt.Sprintf("%s received a %d-star review.", business.Name, req.Rating),
		Link:     "/businesses/" + id.String(),
		Data:     map[string]interface{}{"review_id": review.ID.String(), "rating": req.Rating},
		SMS:      true,
		Email:    true,
	})
	h.hook.OnBusinessStateChanged(c.UserContext(), id)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": review})
}

type verifyBusinessRequest struct {
	Verified *bool `json:"verified"`
}

// VerifyBusiness records church verification. Admin only.
func (h *BusinessHandler) VerifyBusiness(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req := verifyBusinessRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	verified := req.Verified == nil || *req.Verified

	if err := h.businesses.SetVerified(c.UserContext(), id, verified); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "Business not found")
		}
		return err
	}

	business, err := h.businesses.FindByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	if verified {
		h.notifyOwner(c.UserContext(), business, services.Notice{
			Category: models.CategoryBusinessVerified,
			Title:    "Business verified",
			Message:  business.Name + " is now church verified.",
			Link:     "/businesses/" + id.String(),
			SMS:      true,
			Email:    true,
		})
	}
	h.hook.OnBusinessStateChanged(c.UserContext(), id)

	return c.JSON(fiber.Map{"success": true, "data": business})
}

func (h *BusinessHandler) notifyOwner(ctx context.Context, business *models.Business, notice services.Notice) {
	owner, err := h.accounts.FindAccountByID(ctx, business.AccountID)
	if err != nil {
		log.Printf("[Business] failed to load owner of %s: %v", business.ID, err)
		return
	}

	notice.Account = *owner
	businessID := business.ID
	notice.BusinessID = &businessID
	if err := h.notifier.Notify(ctx, notice); err != nil {
		log.Printf("[Business] notification failed for %s: %v", owner.ID, err)
	}
}

var _ StateChangeHook = (*campaign.Engine)(nil)
