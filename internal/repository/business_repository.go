package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/faithconnect/internal/models"
)

// BusinessRepository stores businesses, their offerings and reviews.
type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Limits reports quota usage for an account's business listing.
type Limits struct {
	Businesses        int64 `json:"businesses"`
	BusinessesAllowed int   `json:"businesses_allowed"`
	Products          int64 `json:"products"`
	ProductsAllowed   int   `json:"products_allowed"`
	Services          int64 `json:"services"`
	ServicesAllowed   int   `json:"services_allowed"`
}

// Create inserts a business unless the owner already has one. The owner
// becomes a business_owner in the same transaction.
func (r *BusinessRepository) Create(ctx context.Context, business *models.Business) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Business{}).Where("account_id = ?", business.AccountID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxBusinessesPerAccount {
			return ErrLimitReached
		}
		if err := tx.Create(business).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).
			Where("id = ? AND user_type = ?", business.AccountID, models.UserTypeMember).
			Update("user_type", models.UserTypeBusinessOwner).Error
	})
}

// FindByID loads a business with its offerings.
func (r *BusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&business, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &business, nil
}

// FindByAccount loads the business owned by accountID.
func (r *BusinessRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("account_id = ?", accountID).
		First(&business).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &business, nil
}

// HasBusiness reports whether accountID owns a business.
func (r *BusinessRepository) HasBusiness(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Business{}).Where("account_id = ?", accountID).Count(&count).Error
	return count > 0, err
}

// Update applies column updates to a business.
func (r *BusinessRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Updates(updates).Error
}

// IncrementViews bumps the view counter.
func (r *BusinessRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// SetVerified records church verification.
func (r *BusinessRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	result := r.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Update("is_verified", verified)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddProduct inserts a product while the business is under its product quota.
func (r *BusinessRepository) AddProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("business_id = ?", product.BusinessID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxProductsPerBusiness {
			return ErrLimitReached
		}
		return tx.Create(product).Error
	})
}

// AddService inserts a service while the business is under its service quota.
func (r *BusinessRepository) AddService(ctx context.Context, service *models.Service) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Service{}).Where("business_id = ?", service.BusinessID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxServicesPerBusiness {
			return ErrLimitReached
		}
		return tx.Create(service).Error
	})
}

// DeleteProduct removes a product owned by businessID.
func (r *BusinessRepository) DeleteProduct(ctx context.Context, businessID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND business_id = ?", productID, businessID).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteService removes a service owned by businessID.
func (r *BusinessRepository) DeleteService(ctx context.Context, businessID, serviceID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND business_id = ?", serviceID, businessID).Delete(&models.Service{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview stores a review and recomputes the business rating and review count.
func (r *BusinessRepository) AddReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}

		var agg struct {
			Average float64
			Total   int64
		}
		if err := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
			Where("business_id = ?", review.BusinessID).
			Scan(&agg).Error; err != nil {
			return err
		}

		return tx.Model(&models.Business{}).Where("id = ?", review.BusinessID).Updates(map[string]interface{}{
			"rating":       decimal.NewFromFloat(agg.Average).Round(2),
			"review_count": agg.Total,
		}).Error
	})
}

// Limits reports how much of each quota the account's business has used.
func (r *BusinessRepository) Limits(ctx context.Context, accountID uuid.UUID) (Limits, error) {
	limits := Limits{
		BusinessesAllowed: models.MaxBusinessesPerAccount,
		ProductsAllowed:   models.MaxProductsPerBusiness,
		ServicesAllowed:   models.MaxServicesPerBusiness,
	}

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Business{}).Where("account_id = ?", accountID).Count(&limits.Businesses).Error; err != nil {
		return limits, err
	}
	owned := db.Model(&models.Business{}).Select("id").Where("account_id = ?", accountID)
	if err := db.Model(&models.Product{}).Where("business_id IN (?)", owned).Count(&limits.Products).Error; err != nil {
		return limits, err
	}
	if err := db.Model(&models.Service{}).Where("business_id IN (?)", owned).Count(&limits.Services).Error; err != nil {
		return limits, err
	}
	return limits, nil
}

// Snapshot loads the state campaign predicates are evaluated against.
func (r *BusinessRepository) Snapshot(ctx context.Context, businessID uuid.UUID) (models.BusinessSnapshot, error) {
	var snap models.BusinessSnapshot
	db := r.db.WithContext(ctx)

	if err := db.First(&snap.Business, "id = ?", businessID).Error; err != nil {
		return snap, notFound(err)
	}
	if err := db.First(&snap.Owner, "id = ?", snap.Business.AccountID).Error; err != nil {
		return snap, notFound(err)
	}
	if err := db.Model(&models.Product{}).Where("business_id = ?", businessID).Count(&snap.Products).Error; err != nil {
		return snap, err
	}
	if err := db.Model(&models.Product{}).Where("business_id = ? AND is_active = ?", businessID, true).Count(&snap.ActiveProducts).Error; err != nil {
		return snap, err
	}
	if err := db.Model(&models.Service{}).Where("business_id = ?", businessID).Count(&snap.Services).Error; err != nil {
		return snap, err
	}
	if err := db.Model(&models.Service{}).Where("business_id = ? AND is_active = ?", businessID, true).Count(&snap.ActiveServices).Error; err != nil {
		return snap, err
	}
	return snap, nil
}
