package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/faithconnect/internal/models"
)

// AccountRepository stores accounts and pending registrations.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindAccountByID loads one account.
func (r *AccountRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// FindAccountByIdentifier matches identifier against phone first, then email.
func (r *AccountRepository) FindAccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	for _, column := range []string{"phone", "email"} {
		var account models.Account
		err := r.db.WithContext(ctx).Where(column+" = ?", identifier).First(&account).Error
		if err == nil {
			return &account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// IdentifiersTaken reports which of phone and email already belong to an account.
func (r *AccountRepository) IdentifiersTaken(ctx context.Context, phone, email string) (bool, bool, error) {
	var phoneTaken, emailTaken bool
	if phone != "" {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
			return false, false, err
		}
		phoneTaken = count > 0
	}
	if email != "" {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return false, false, err
		}
		emailTaken = count > 0
	}
	return phoneTaken, emailTaken, nil
}

// SaveAccount writes every column of account.
func (r *AccountRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// FindPendingByIdentifier matches identifier against phone first, then email.
func (r *AccountRepository) FindPendingByIdentifier(ctx context.Context, identifier string) (*models.PendingRegistration, error) {
	for _, column := range []string{"phone", "email"} {
		var pending models.PendingRegistration
		err := r.db.WithContext(ctx).Where(column+" = ?", identifier).First(&pending).Error
		if err == nil {
			return &pending, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// ReplacePending deletes any pending registration sharing the phone or email
// and inserts pending in its place. A concurrent insert yields ErrDuplicate.
func (r *AccountRepository) ReplacePending(ctx context.Context, pending *models.PendingRegistration) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pending.Phone != nil {
			if err := tx.Where("phone = ?", *pending.Phone).Delete(&models.PendingRegistration{}).Error; err != nil {
				return err
			}
		}
		if pending.Email != nil {
			if err := tx.Where("email = ?", *pending.Email).Delete(&models.PendingRegistration{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(pending).Error
	})
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// SavePending writes every column of pending.
func (r *AccountRepository) SavePending(ctx context.Context, pending *models.PendingRegistration) error {
	return r.db.WithContext(ctx).Save(pending).Error
}

// PromotePending inserts account and deletes pending atomically. A unique
// violation yields ErrDuplicate; a pending row already consumed yields ErrConflict.
func (r *AccountRepository) PromotePending(ctx context.Context, pending *models.PendingRegistration, account *models.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.PendingRegistration{}, "id = ?", pending.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProfile changes the editable profile fields.
func (r *AccountRepository) UpdateProfile(ctx context.Context, accountID uuid.UUID, updates map[string]interface{}) (*models.Account, error) {
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.FindAccountByID(ctx, accountID)
}
