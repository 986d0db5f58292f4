package cron

import (
	"context"
	"sync"
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

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type reminder struct {
	email    string
	daysLeft int
}

type recordingMailer struct {
	mu        sync.Mutex
	reminders []reminder
	warnings  []int
}

func (m *recordingMailer) SendTrialReminderEmail(email, _ string, daysLeft int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, reminder{email, daysLeft})
	return nil
}

func (m *recordingMailer) SendSubscriptionExpiryWarning(_, _, _ string, _ time.Time, daysLeft int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, daysLeft)
	return nil
}

func (m *recordingMailer) sent() []reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reminder(nil), m.reminders...)
}

type fixture struct {
	db       *gorm.DB
	accounts *repository.AccountRepository
	subs     *repository.SubscriptionRepository
	policy   trial.Policy
	clock    *clock.Fixed
	mailer   *recordingMailer
	job      *TrialReminderJob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Folder{}, &model.SubscriptionRecord{}, &model.LoginHistory{}))

	f := &fixture{
		db:       db,
		accounts: repository.NewAccountRepository(db, nil),
		subs:     repository.NewSubscriptionRepository(db, nil),
		policy:   trial.NewPolicy(14),
		clock:    clock.NewFixed(t0),
		mailer:   &recordingMailer{},
	}
	resolver := entitlement.NewResolver(f.subs, f.accounts, f.policy, nil)
	f.job = NewTrialReminderJob(f.accounts, resolver, f.policy, f.mailer, f.clock, nil)
	return f
}

func (f *fixture) signup(t *testing.T, email string, at time.Time) *model.Account {
	t.Helper()
	w := f.policy.NewWindow(at)
	acct := &model.Account{
		Email: email, Password: "hash", Name: "Owner", Slug: email,
		TrialStartDate: w.Start, TrialEndDate: w.End,
	}
	require.NoError(t, f.accounts.Create(context.Background(), acct))
	return acct
}

func TestTrialReminders_ThreeDaysThenLastDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@example.com", t0)

	f.clock.Set(t0.Add(10 * trial.Day))
	require.NoError(t, f.job.Run(ctx))
	assert.Empty(t, f.mailer.sent(), "four days left is not due yet")

	f.clock.Set(t0.Add(11*trial.Day + time.Hour))
	require.NoError(t, f.job.Run(ctx))
	require.NoError(t, f.job.Run(ctx))
	assert.Equal(t, []reminder{{"a@example.com", 3}}, f.mailer.sent())

	f.clock.Set(t0.Add(13*trial.Day + time.Hour))
	require.NoError(t, f.job.Run(ctx))
	require.NoError(t, f.job.Run(ctx))
	assert.Equal(t, []reminder{{"a@example.com", 3}, {"a@example.com", 1}}, f.mailer.sent())

	f.clock.Set(t0.Add(14 * trial.Day))
	require.NoError(t, f.job.Run(ctx))
	assert.Len(t, f.mailer.sent(), 2)
}

func TestTrialReminders_MissedRunSendsOnlyLastDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.signup(t, "late@example.com", t0)

	f.clock.Set(t0.Add(13*trial.Day + time.Hour))
	require.NoError(t, f.job.Run(ctx))
	assert.Equal(t, []reminder{{"late@example.com", 1}}, f.mailer.sent())

	stored, err := f.accounts.FindByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, stored.TrialNotified3Days)
	assert.True(t, stored.TrialNotifiedLastDay)
}

func TestTrialReminders_SkipsPayingAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.signup(t, "paid@example.com", t0)

	require.NoError(t, f.subs.Upsert(ctx, &model.SubscriptionRecord{
		AccountID:            acct.ID,
		Status:               subscription.StatusActive,
		Plan:                 subscription.EnterprisePlan,
		CurrentPeriodStart:   t0,
		CurrentPeriodEnd:     t0.Add(30 * trial.Day),
		StripeSubscriptionID: "sub_paid",
	}))

	f.clock.Set(t0.Add(12 * trial.Day))
	require.NoError(t, f.job.Run(ctx))
	assert.Empty(t, f.mailer.sent())

	stored, err := f.accounts.FindByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, stored.TrialNotified3Days)
}

func TestTrialReminders_ConcurrentRunsSendOnce(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "race@example.com", t0)
	f.clock.Set(t0.Add(12 * trial.Day))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.job.Run(context.Background())
		}()
	}
	wg.Wait()

	assert.Len(t, f.mailer.sent(), 1)
}

func TestRenewalReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.clock.Set(now)

	ends := map[string]time.Time{
		"seven@example.com": now.AddDate(0, 0, 7).Add(3 * time.Hour),
		"three@example.com": now.AddDate(0, 0, 3),
		"later@example.com": now.AddDate(0, 0, 20),
	}
	for email, end := range ends {
		acct := f.signup(t, email, now.Add(-30*trial.Day))
		require.NoError(t, f.subs.Upsert(ctx, &model.SubscriptionRecord{
			AccountID:            acct.ID,
			Status:               subscription.StatusActive,
			Plan:                 subscription.BusinessProPlan,
			CurrentPeriodStart:   end.Add(-30 * trial.Day),
			CurrentPeriodEnd:     end,
			StripeSubscriptionID: "sub_" + email,
		}))
	}

	job := NewRenewalReminderJob(f.subs, f.mailer, f.clock, nil)
	require.NoError(t, job.Run(ctx))
	assert.ElementsMatch(t, []int{7, 3}, f.mailer.warnings)
}

type countingJob struct {
	runs int
}

func (j *countingJob) Name() string                { return "counting" }
func (j *countingJob) Run(ctx context.Context) error { j.runs++; return nil }

type denyLocker struct{}

func (denyLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

func TestSchedulerHonoursLock(t *testing.T) {
	job := &countingJob{}

	NewScheduler(denyLocker{}, nil).runOnce(context.Background(), job)
	assert.Equal(t, 0, job.runs)

	NewScheduler(nil, nil).runOnce(context.Background(), job)
	assert.Equal(t, 1, job.runs)

	assert.Error(t, NewScheduler(nil, nil).Add("not a spec", job))
}
