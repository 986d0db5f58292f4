package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/apperrors"
	"apexmind_backend/pkg/config"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/subscription"
	"apexmind_backend/pkg/trial"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Folder{}, &model.SubscriptionRecord{}, &model.LoginHistory{}))
	return db
}

func testBreaker(name string) *Breaker {
	return NewBreaker(name, config.BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1}, time.Second, nil)
}

func createAccount(t *testing.T, repo *AccountRepository, email string) *model.Account {
	t.Helper()
	w := trial.NewPolicy(14).NewWindow(t0)
	acct := &model.Account{
		Email:          email,
		Password:       "hash",
		Name:           "Owner",
		Slug:           email,
		TrialStartDate: w.Start,
		TrialEndDate:   w.End,
	}
	require.NoError(t, repo.Create(context.Background(), acct))
	return acct
}

func TestAccountRepository_CreateWithDefaultFolders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	ctx := context.Background()

	acct := createAccount(t, repo, "owner@example.com")
	assert.NotZero(t, acct.ID)

	folders, err := repo.ListFolders(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, folders, 4)
	assert.Equal(t, "Документы", folders[0].Name)
	assert.Equal(t, "/Документы", folders[0].Path)
	assert.True(t, folders[0].IsSystem)

	found, err := repo.FindByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, found.TrialNotified3Days)
	assert.False(t, found.TrialNotifiedLastDay)
	assert.True(t, found.TrialEndDate.Equal(t0.Add(14*trial.Day)))
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))

	createAccount(t, repo, "dup@example.com")

	w := trial.NewPolicy(14).NewWindow(t0)
	err := repo.Create(context.Background(), &model.Account{
		Email: "dup@example.com", Password: "x", Name: "Other", Slug: "other",
		TrialStartDate: w.Start, TrialEndDate: w.End,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestAccountRepository_FindMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))

	_, err := repo.FindByID(context.Background(), 404)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, gobreaker.StateClosed, repo.breaker.State(), "not-found must not trip the breaker")
}

func TestAccountRepository_TrialWindowImmutable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	acct := createAccount(t, repo, "immutable@example.com")

	err := db.Model(acct).Updates(map[string]interface{}{"trial_end_date": t0.Add(60 * trial.Day)}).Error
	assert.ErrorIs(t, err, model.ErrTrialImmutable)

	updated, err := repo.UpdateProfile(context.Background(), acct.ID, map[string]interface{}{"company": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.True(t, updated.TrialEndDate.Equal(t0.Add(14*trial.Day)))
}

func TestAccountRepository_ProfileWritesSkipTrialWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	acct := createAccount(t, repo, "profile@example.com")

	updated, err := repo.UpdateProfile(context.Background(), acct.ID, map[string]interface{}{
		"name":             "Renamed",
		"trial_start_date": t0.Add(30 * trial.Day),
		"trial_end_date":   t0.Add(60 * trial.Day),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.TrialStartDate.Equal(t0))
	assert.True(t, updated.TrialEndDate.Equal(t0.Add(14*trial.Day)))
}

func TestAccountRepository_MarkTrialNotifiedOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	ctx := context.Background()
	acct := createAccount(t, repo, "flags@example.com")

	won, err := repo.MarkTrialNotified(ctx, acct.ID, entitlement.ThreeDaysLeft)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkTrialNotified(ctx, acct.ID, entitlement.ThreeDaysLeft)
	require.NoError(t, err)
	assert.False(t, won, "second claim must lose")

	found, err := repo.FindByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, found.TrialNotified3Days)
	assert.False(t, found.TrialNotifiedLastDay)

	_, err = repo.MarkTrialNotified(ctx, acct.ID, entitlement.Notice("WEEK_LEFT"))
	assert.Error(t, err)
}

func TestAccountRepository_MarkTrialNotifiedConcurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	acct := createAccount(t, repo, "race@example.com")

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkTrialNotified(context.Background(), acct.ID, entitlement.LastDay)
			if err == nil && won {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestAccountRepository_ListTrialReminderCandidates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db, testBreaker("accounts"))
	ctx := context.Background()

	fresh := createAccount(t, repo, "fresh@example.com")
	done := createAccount(t, repo, "done@example.com")
	_, err := repo.MarkTrialNotified(ctx, done.ID, entitlement.ThreeDaysLeft)
	require.NoError(t, err)
	_, err = repo.MarkTrialNotified(ctx, done.ID, entitlement.LastDay)
	require.NoError(t, err)

	got, err := repo.ListTrialReminderCandidates(ctx, t0.Add(12*trial.Day))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)

	got, err = repo.ListTrialReminderCandidates(ctx, t0.Add(14*trial.Day))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubscriptionRepository_NoRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))

	rec, err := repo.GetActiveSubscription(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, rec, "store must not fabricate a default record")
}

func activeRecord(accountID uint, stripeID string) *model.SubscriptionRecord {
	return &model.SubscriptionRecord{
		AccountID:            accountID,
		Status:               subscription.StatusActive,
		Plan:                 subscription.BusinessProPlan,
		CurrentPeriodStart:   t0,
		CurrentPeriodEnd:     t0.Add(30 * trial.Day),
		Price:                139,
		Currency:             "USD",
		StripeSubscriptionID: stripeID,
	}
}

func TestSubscriptionRepository_UpsertAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, activeRecord(1, "sub_1")))

	next := activeRecord(1, "sub_1")
	next.CurrentPeriodStart = t0.Add(30 * trial.Day)
	next.CurrentPeriodEnd = t0.Add(60 * trial.Day)
	require.NoError(t, repo.Upsert(ctx, next))

	var count int64
	require.NoError(t, db.Model(&model.SubscriptionRecord{}).Where("account_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rec, err := repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.CurrentPeriodEnd.Equal(t0.Add(60*trial.Day)))
}

func TestSubscriptionRepository_CanceledIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()

	canceled := activeRecord(1, "sub_1")
	canceled.Status = subscription.StatusCanceled
	require.NoError(t, repo.Upsert(ctx, canceled))

	err := repo.Upsert(ctx, activeRecord(1, "sub_1"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, repo.Upsert(ctx, activeRecord(1, "sub_2")))
	rec, err := repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "sub_2", rec.StripeSubscriptionID)
	assert.Equal(t, subscription.StatusActive, rec.Status)
}

func TestSubscriptionRepository_OtherSubscriptionMustSupersede(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, activeRecord(1, "sub_new")))

	staleCanceled := activeRecord(1, "sub_old")
	staleCanceled.Status = subscription.StatusCanceled
	staleCanceled.CurrentPeriodStart = t0.Add(-30 * trial.Day)
	staleCanceled.CurrentPeriodEnd = t0
	assert.ErrorIs(t, repo.Upsert(ctx, staleCanceled), ErrSupersededSubscription)

	stalePastDue := activeRecord(1, "sub_old")
	stalePastDue.Status = subscription.StatusPastDue
	stalePastDue.CurrentPeriodEnd = t0.Add(90 * trial.Day)
	assert.ErrorIs(t, repo.Upsert(ctx, stalePastDue), ErrSupersededSubscription)

	staleActive := activeRecord(1, "sub_old")
	staleActive.CurrentPeriodEnd = t0.Add(10 * trial.Day)
	assert.ErrorIs(t, repo.Upsert(ctx, staleActive), ErrSupersededSubscription)

	rec, err := repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "sub_new", rec.StripeSubscriptionID)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.Equal(t, gobreaker.StateClosed, repo.breaker.State())

	// a newer active subscription takes over the row
	next := activeRecord(1, "sub_next")
	next.CurrentPeriodEnd = t0.Add(60 * trial.Day)
	require.NoError(t, repo.Upsert(ctx, next))

	var count int64
	require.NoError(t, db.Model(&model.SubscriptionRecord{}).Where("account_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rec, err = repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "sub_next", rec.StripeSubscriptionID)
}

func TestSubscriptionRepository_LocalRecordIsReplaceable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, activeRecord(1, "")))

	checkout := activeRecord(1, "sub_1")
	checkout.CurrentPeriodEnd = t0.Add(5 * trial.Day)
	require.NoError(t, repo.Upsert(ctx, checkout))

	rec, err := repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", rec.StripeSubscriptionID)
}

func TestSubscriptionRepository_RejectsInvalidRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()

	bad := activeRecord(1, "sub_1")
	bad.CurrentPeriodEnd = t0.Add(-trial.Day)
	assert.True(t, apperrors.IsInvalidAccountState(repo.Upsert(ctx, bad)))

	bad = activeRecord(1, "sub_1")
	bad.Plan = "GOLD"
	assert.Error(t, repo.Upsert(ctx, bad))
}

func TestSubscriptionRepository_MarkPastDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, activeRecord(1, "sub_1")))

	rec, err := repo.MarkPastDue(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, rec.Status)

	stored, err := repo.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, stored.Status)

	_, err = repo.MarkPastDue(ctx, "sub_missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSubscriptionRepository_OutageIsDependencyUnavailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testBreaker("subscriptions"))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for i := 0; i < 3; i++ {
		rec, err := repo.GetActiveSubscription(context.Background(), 1)
		assert.Nil(t, rec)
		require.Error(t, err)
		assert.True(t, apperrors.IsDependencyUnavailable(err))
	}
	assert.Equal(t, gobreaker.StateOpen, repo.breaker.State())

	_, err = repo.GetActiveSubscription(context.Background(), 1)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}
