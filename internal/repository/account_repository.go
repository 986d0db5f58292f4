package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/entitlement"
)

type AccountRepository struct {
	db      *gorm.DB
	breaker *Breaker
}

func NewAccountRepository(db *gorm.DB, breaker *Breaker) *AccountRepository {
	return &AccountRepository{db: db, breaker: breaker}
}

// Create stores a new account together with its default folders.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&model.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperrors.NewConflictError("User already exists")
			}
			if err := tx.Omit("Folders").Create(account).Error; err != nil {
				if isDuplicate(err) {
					return apperrors.NewConflictError("User already exists")
				}
				return err
			}
			folders := model.DefaultFolders(account.ID)
			if err := tx.Create(&folders).Error; err != nil {
				return err
			}
			account.Folders = folders
			return nil
		})
	})
}

func (r *AccountRepository) FindByID(ctx context.Context, accountID uint) (*model.Account, error) {
	var account model.Account
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).First(&account, accountID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&account).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.Account{}).Where("slug = ?", slug).Count(&count).Error
	})
	return count > 0, err
}

// ListTrialReminderCandidates returns accounts whose trial is still running
// and that have at least one reminder flag unset.
func (r *AccountRepository) ListTrialReminderCandidates(ctx context.Context, now time.Time) ([]model.Account, error) {
	var accounts []model.Account
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Where("trial_end_date > ?", now).
			Where("trial_notified_3_days = ? OR trial_notified_last_day = ?", false, false).
			Order("id").
			Find(&accounts).Error
	})
	return accounts, err
}

func noticeColumn(notice entitlement.Notice) (string, bool) {
	switch notice {
	case entitlement.ThreeDaysLeft:
		return "trial_notified_3_days", true
	case entitlement.LastDay:
		return "trial_notified_last_day", true
	}
	return "", false
}

// MarkTrialNotified sets a reminder flag with a conditional update and
// reports whether this call flipped it. Only the winner may send the reminder.
func (r *AccountRepository) MarkTrialNotified(ctx context.Context, accountID uint, notice entitlement.Notice) (bool, error) {
	column, ok := noticeColumn(notice)
	if !ok {
		return false, apperrors.NewValidationError("unknown trial notice", string(notice))
	}

	var affected int64
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		res := r.db.WithContext(ctx).
			Model(&model.Account{}).
			Where("id = ? AND "+column+" = ?", accountID, false).
			Update(column, true)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, accountID uint, updates map[string]interface{}) (*model.Account, error) {
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.Account{}).
			Where("id = ?", accountID).
			Omit(model.TrialWindowColumns...).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, accountID)
}

func (r *AccountRepository) RecordLogin(ctx context.Context, entry *model.LoginHistory) error {
	return r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Create(entry).Error
	})
}

func (r *AccountRepository) ListFolders(ctx context.Context, accountID uint) ([]model.Folder, error) {
	var folders []model.Folder
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("is_system DESC, id").Find(&folders).Error
	})
	return folders, err
}

func (r *AccountRepository) CountCustomFolders(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.Folder{}).
			Where("account_id = ? AND is_system = ?", accountID, false).
			Count(&count).Error
	})
	return count, err
}

func (r *AccountRepository) CreateFolder(ctx context.Context, folder *model.Folder) error {
	return r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Create(folder).Error
	})
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
