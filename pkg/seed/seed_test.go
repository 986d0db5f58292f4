package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"apexmind_backend/internal/model"
	"apexmind_backend/internal/repository"
	"apexmind_backend/pkg/clock"
	"apexmind_backend/pkg/entitlement"
	"apexmind_backend/pkg/subscription"
	"apexmind_backend/pkg/trial"
)

func TestSeedDemoAccount(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Folder{}, &model.SubscriptionRecord{}))

	accounts := repository.NewAccountRepository(db, nil)
	subs := repository.NewSubscriptionRepository(db, nil)
	policy := trial.NewPolicy(14)
	now := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	ctx := context.Background()

	require.NoError(t, SeedDemoAccount(ctx, accounts, subs, policy, clk))
	require.NoError(t, SeedDemoAccount(ctx, accounts, subs, policy, clk))

	var count int64
	require.NoError(t, db.Model(&model.Account{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	demo, err := accounts.FindByEmail(ctx, DemoEmail)
	require.NoError(t, err)

	level, err := entitlement.NewResolver(subs, accounts, policy, nil).ResolveAccess(ctx, demo.ID, now.Add(20*trial.Day))
	require.NoError(t, err)
	assert.Equal(t, entitlement.PaidActive, level.Kind)
	assert.Equal(t, subscription.BusinessProPlan, level.Plan)
}
