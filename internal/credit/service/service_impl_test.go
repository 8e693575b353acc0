package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/commcredit/internal/cache"
	"github.com/smallbiznis/commcredit/internal/clock"
	"github.com/smallbiznis/commcredit/internal/config"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/credit/repository"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/commcredit/internal/subscription/repository"
	"github.com/smallbiznis/commcredit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var march15 = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	cache    *cache.MemoryCreditCache
	credits  *config.CreditsConfigHolder
	subRepo  subscriptiondomain.Repository
	tenantID snowflake.ID
}

func (f *fixture) tenant() string { return f.tenantID.String() }

func setupCreditService(t *testing.T, creditsCfg config.CreditsConfig) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:       testutil.OpenSQLite(t),
		node:     node,
		clock:    clock.NewFakeClock(march15),
		cache:    cache.NewMemoryCreditCache(),
		credits:  config.NewStaticCreditsConfigHolder(creditsCfg),
		subRepo:  subscriptionrepository.Provide(),
		tenantID: node.Generate(),
	}
	f.svc = NewService(ServiceParam{
		DB:               f.db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            f.clock,
		Repo:             repository.Provide(),
		SubscriptionRepo: f.subRepo,
		Cache:            f.cache,
		CreditsConfig:    f.credits,
	})
	return f
}

type limits struct {
	sms, email, whatsapp, voice int64
	anchor                      *int16
}

func seedSubscription(t *testing.T, f *fixture, status subscriptiondomain.SubscriptionStatus, l limits) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.subRepo.Upsert(context.Background(), f.db, &subscriptiondomain.Subscription{
		ID:               f.node.Generate(),
		TenantID:         f.tenantID,
		Status:           status,
		SMSLimit:         l.sms,
		EmailLimit:       l.email,
		WhatsAppLimit:    l.whatsapp,
		VoiceLimit:       l.voice,
		BillingAnchorDay: l.anchor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}))
}

// seedUsage writes the counter directly, bypassing the guard.
func seedUsage(t *testing.T, f *fixture, channel creditdomain.Channel, sent int64) {
	t.Helper()
	ctx := context.Background()
	window, err := f.svc.resolveWindow(ctx, f.db, f.tenantID, f.clock.Now())
	require.NoError(t, err)

	row, _, err := f.svc.repo.FindOrCreateUsage(ctx, f.db, creditdomain.UsagePeriod{
		ID:          f.node.Generate(),
		TenantID:    f.tenantID,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		CreatedAt:   window.Start,
		UpdatedAt:   window.Start,
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		fmt.Sprintf("UPDATE usage_periods SET %s = ? WHERE id = ?", channel.SentColumn()),
		sent, row.ID,
	).Error)
}

func usageRows(t *testing.T, f *fixture) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Raw("SELECT COUNT(*) FROM usage_periods WHERE tenant_id = ?", f.tenantID).Scan(&count).Error)
	return count
}

func TestCanUseChannel(t *testing.T) {
	cases := []struct {
		name   string
		sent   int64
		amount int64
		want   bool
	}{
		{name: "room left", sent: 20, amount: 10, want: true},
		{name: "exactly enough", sent: 90, amount: 10, want: true},
		{name: "not enough", sent: 95, amount: 10, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupCreditService(t, config.DefaultCreditsConfig())
			seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})
			seedUsage(t, f, creditdomain.ChannelSMS, tc.sent)

			ok, err := f.svc.CanUseChannel(context.Background(), f.tenant(), "sms", tc.amount)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestDeductCreditsWithinAllowance(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{email: 500})
	seedUsage(t, f, creditdomain.ChannelEmail, 100)

	balance, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "email", Amount: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 150, balance.Used)
	assert.EqualValues(t, 350, balance.Available)

	used, err := f.svc.GetCurrentUsage(ctx, f.tenant(), "email")
	require.NoError(t, err)
	assert.EqualValues(t, 150, used)
}

func TestDeductCreditsInsufficientLeavesUsageUntouched(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{whatsapp: 50})
	seedUsage(t, f, creditdomain.ChannelWhatsApp, 45)

	_, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "whatsapp", Amount: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredits)

	var insufficient *creditdomain.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, creditdomain.ChannelWhatsApp, insufficient.Channel)
	assert.EqualValues(t, 10, insufficient.Requested)
	assert.EqualValues(t, 5, insufficient.Available)

	used, err := f.svc.GetCurrentUsage(ctx, f.tenant(), "whatsapp")
	require.NoError(t, err)
	assert.EqualValues(t, 45, used)
}

func TestAvailableIncludesTopUpsOfTheWindow(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})
	seedUsage(t, f, creditdomain.ChannelSMS, 30)

	// A grant from the previous window must not count.
	require.NoError(t, f.svc.repo.InsertTopUp(ctx, f.db, &creditdomain.TopUp{
		ID:        f.node.Generate(),
		TenantID:  f.tenantID,
		Channel:   creditdomain.ChannelSMS,
		Amount:    999,
		CreatedAt: time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
	}))

	topUp, err := f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{
		TenantID: f.tenant(),
		Channel:  "sms",
		Amount:   200,
		Reason:   "campaign boost",
		AddedBy:  "operator:ops-7",
		Metadata: map[string]any{"ticket": "OPS-12"},
	})
	require.NoError(t, err)
	assert.Equal(t, march15, topUp.CreatedAt)
	assert.Equal(t, "operator:ops-7", topUp.AddedBy)

	available, err := f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 270, available)

	balance, err := f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance.Base)
	assert.EqualValues(t, 200, balance.TopUps)
	assert.EqualValues(t, 30, balance.Used)
}

func TestTopUpsDoNotCarryIntoNextWindow(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{voice: 10})

	_, err := f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: f.tenant(), Channel: "voice", Amount: 5})
	require.NoError(t, err)
	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "voice", Amount: 12})
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))

	balance, err := f.svc.GetBalance(ctx, f.tenant(), "voice")
	require.NoError(t, err)
	assert.EqualValues(t, 10, balance.Available)
	assert.Zero(t, balance.TopUps)
	assert.Zero(t, balance.Used)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), balance.PeriodStart)
}

func TestNoSubscriptionMeansZero(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()

	for _, channel := range creditdomain.Channels {
		available, err := f.svc.Available(ctx, f.tenant(), channel.String())
		require.NoError(t, err)
		assert.Zero(t, available)

		ok, err := f.svc.CanUseChannel(ctx, f.tenant(), channel.String(), 1)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Zero(t, usageRows(t, f), "reads must not create usage rows")
}

func TestInactiveSubscriptionGrantsNothing(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusCanceled, limits{sms: 100})

	available, err := f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Zero(t, available)

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 1})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredits)
}

func TestValidationErrors(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	tenant := f.tenant()

	t.Run("channel closure", func(t *testing.T) {
		_, err := f.svc.Available(ctx, tenant, "carrier-pigeon")
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
		_, err = f.svc.CanUseChannel(ctx, tenant, "carrier-pigeon", 1)
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
		_, err = f.svc.GetCurrentUsage(ctx, tenant, "carrier-pigeon")
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
		_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: tenant, Channel: "carrier-pigeon", Amount: 1})
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
		_, err = f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: tenant, Channel: "carrier-pigeon", Amount: 1})
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
		_, err = f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: tenant, Channel: "carrier-pigeon"})
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
	})

	t.Run("amount", func(t *testing.T) {
		for _, amount := range []int64{0, -5} {
			_, err := f.svc.CanUseChannel(ctx, tenant, "sms", amount)
			assert.ErrorIs(t, err, creditdomain.ErrInvalidAmount)
			_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: tenant, Channel: "sms", Amount: amount})
			assert.ErrorIs(t, err, creditdomain.ErrInvalidAmount)
			_, err = f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: tenant, Channel: "sms", Amount: amount})
			assert.ErrorIs(t, err, creditdomain.ErrInvalidAmount)
		}
	})

	t.Run("tenant", func(t *testing.T) {
		for _, id := range []string{"", "abc", "-1", "0"} {
			_, err := f.svc.Available(ctx, id, "sms")
			assert.ErrorIs(t, err, creditdomain.ErrInvalidTenant)
			_, err = f.svc.Summary(ctx, id)
			assert.ErrorIs(t, err, creditdomain.ErrInvalidTenant)
		}
	})

	t.Run("channel is checked before tenant", func(t *testing.T) {
		_, err := f.svc.Available(ctx, "abc", "fax")
		assert.ErrorIs(t, err, creditdomain.ErrInvalidChannel)
	})

	t.Run("channel names are case insensitive", func(t *testing.T) {
		_, err := f.svc.Available(ctx, tenant, " SMS ")
		assert.NoError(t, err)
	})

	assert.Zero(t, usageRows(t, f))
}

func TestDeductCreditsMaxAmount(t *testing.T) {
	cfg := config.DefaultCreditsConfig()
	cfg.MaxDeductAmount = 10
	f := setupCreditService(t, cfg)
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})

	_, err := f.svc.DeductCredits(context.Background(), creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 11})
	assert.ErrorIs(t, err, creditdomain.ErrAmountExceedsLimit)

	_, err = f.svc.DeductCredits(context.Background(), creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 10})
	assert.NoError(t, err)
}

// On the one-connection sqlite pool the deductions serialize; the row lock itself
// is exercised by TestPostgresConcurrentDeductionsHonorRowLock.
func TestConcurrentDeductionsNeverOverspend(t *testing.T) {
	cases := []struct {
		name     string
		workers  int
		amount   int64
		wantOK   int64
		wantSent int64
	}{
		{name: "two deductions of sixty against one hundred", workers: 2, amount: 60, wantOK: 1, wantSent: 60},
		{name: "many small deductions", workers: 20, amount: 7, wantOK: 14, wantSent: 98},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupCreditService(t, config.DefaultCreditsConfig())
			ctx := context.Background()
			seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})

			var (
				wg           sync.WaitGroup
				succeeded    atomic.Int64
				insufficient atomic.Int64
				start        = make(chan struct{})
				unexpected   = make(chan error, tc.workers)
			)
			for i := 0; i < tc.workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: tc.amount})
					switch {
					case err == nil:
						succeeded.Add(1)
					case errors.Is(err, creditdomain.ErrInsufficientCredits):
						insufficient.Add(1)
					default:
						unexpected <- err
					}
				}()
			}
			close(start)
			wg.Wait()
			close(unexpected)

			for err := range unexpected {
				t.Fatalf("unexpected error: %v", err)
			}
			assert.Equal(t, tc.wantOK, succeeded.Load())
			assert.Equal(t, int64(tc.workers)-tc.wantOK, insufficient.Load())

			used, err := f.svc.GetCurrentUsage(ctx, f.tenant(), "sms")
			require.NoError(t, err)
			assert.Equal(t, tc.wantSent, used)
			assert.EqualValues(t, 1, usageRows(t, f))
		})
	}
}

func TestCacheCoherenceAfterMutations(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})

	available, err := f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	require.EqualValues(t, 100, available)

	// A write behind the service's back is invisible while the entry is cached.
	seedUsage(t, f, creditdomain.ChannelSMS, 40)
	available, err = f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 100, available)

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 10})
	require.NoError(t, err)
	available, err = f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 50, available)

	_, err = f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: f.tenant(), Channel: "sms", Amount: 25})
	require.NoError(t, err)
	available, err = f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 75, available)
}

func TestStaleReaderCannotRepopulateCache(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})

	window, err := f.svc.resolveWindow(ctx, f.db, f.tenantID, f.clock.Now())
	require.NoError(t, err)
	key := cache.CreditKey{TenantID: f.tenantID, Channel: creditdomain.ChannelSMS, PeriodStart: window.Start}

	// Reader takes its generation and computes from the store.
	gen, err := f.cache.Generation(ctx, key)
	require.NoError(t, err)
	stale, err := f.svc.computeBalance(ctx, f.tenantID, creditdomain.ChannelSMS, window)
	require.NoError(t, err)

	// A deduction commits and invalidates before the reader writes back.
	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 30})
	require.NoError(t, err)

	stored, err := f.cache.Set(ctx, key, stale, gen, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	available, err := f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 70, available)
}

func TestAnniversaryAlignment(t *testing.T) {
	cfg := config.DefaultCreditsConfig()
	cfg.PeriodAlignment = config.PeriodAlignmentAnniversary
	f := setupCreditService(t, cfg)
	ctx := context.Background()

	anchor := int16(10)
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100, anchor: &anchor})

	_, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 40})
	require.NoError(t, err)

	// Still inside [Mar 10, Apr 10).
	f.clock.Set(time.Date(2024, time.April, 9, 23, 0, 0, 0, time.UTC))
	balance, err := f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 40, balance.Used)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), balance.PeriodStart)

	f.clock.Set(time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC))
	balance, err = f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Zero(t, balance.Used)
	assert.Equal(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), balance.PeriodEnd)
}

func TestAnchorChangeKeepsCurrentWindow(t *testing.T) {
	cfg := config.DefaultCreditsConfig()
	cfg.PeriodAlignment = config.PeriodAlignmentAnniversary
	f := setupCreditService(t, cfg)
	ctx := context.Background()

	first := int16(1)
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100, anchor: &first})
	_, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 100})
	require.NoError(t, err)

	moved := int16(10)
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100, anchor: &moved})
	require.NoError(t, f.svc.InvalidateTenant(ctx, f.tenantID))

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 100})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredits)
	assert.EqualValues(t, 1, usageRows(t, f))

	balance, err := f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), balance.PeriodStart)
	assert.EqualValues(t, 100, balance.Used)
	assert.Zero(t, balance.Available)

	// The old window closes on Apr 1; a short window bridges to the new anchor.
	f.clock.Set(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	balance, err = f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), balance.PeriodStart)
	assert.Equal(t, time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), balance.PeriodEnd)
	assert.Zero(t, balance.Used)

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 2, usageRows(t, f))

	f.clock.Set(time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC))
	balance, err = f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), balance.PeriodStart)
	assert.Equal(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), balance.PeriodEnd)
	assert.Zero(t, balance.Used)
}

func TestAlignmentReloadKeepsCurrentWindow(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()

	anchor := int16(10)
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100, anchor: &anchor})
	_, err := f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 100})
	require.NoError(t, err)

	reloaded := config.DefaultCreditsConfig()
	reloaded.PeriodAlignment = config.PeriodAlignmentAnniversary
	f.credits.Replace(reloaded)

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 1})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredits)
	assert.EqualValues(t, 1, usageRows(t, f))

	f.clock.Set(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	balance, err := f.svc.GetBalance(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), balance.PeriodStart)
	assert.Equal(t, time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), balance.PeriodEnd)
	assert.EqualValues(t, 100, balance.Available)
}

func TestAddCreditsAmountCap(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()
	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100})

	_, err := f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: f.tenant(), Channel: "sms", Amount: math.MaxInt64})
	assert.ErrorIs(t, err, creditdomain.ErrAmountExceedsLimit)

	_, err = f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: f.tenant(), Channel: "sms", Amount: config.DefaultMaxTopUpAmount})
	require.NoError(t, err)

	available, err := f.svc.Available(ctx, f.tenant(), "sms")
	require.NoError(t, err)
	assert.EqualValues(t, 100+config.DefaultMaxTopUpAmount, available)

	_, err = f.svc.DeductCredits(ctx, creditdomain.DeductRequest{TenantID: f.tenant(), Channel: "sms", Amount: 1})
	assert.NoError(t, err)
}

func TestSummary(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()

	summary, err := f.svc.Summary(ctx, f.tenant())
	require.NoError(t, err)
	assert.Equal(t, subscriptionStatusNone, summary.SubscriptionStatus)

	seedSubscription(t, f, subscriptiondomain.SubscriptionStatusActive, limits{sms: 100, email: 50, whatsapp: 20, voice: 5})
	seedUsage(t, f, creditdomain.ChannelEmail, 10)

	// Drop what the first call cached.
	require.NoError(t, f.svc.InvalidateTenant(ctx, f.tenantID))

	summary, err = f.svc.Summary(ctx, f.tenant())
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", summary.SubscriptionStatus)
	require.Len(t, summary.Channels, 4)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), summary.PeriodStart)

	got := map[creditdomain.Channel]int64{}
	for _, b := range summary.Channels {
		got[b.Channel] = b.Available
	}
	assert.Equal(t, map[creditdomain.Channel]int64{
		creditdomain.ChannelSMS:      100,
		creditdomain.ChannelEmail:    40,
		creditdomain.ChannelWhatsApp: 20,
		creditdomain.ChannelVoice:    5,
	}, got)
}

func TestListTopUpsPages(t *testing.T) {
	f := setupCreditService(t, config.DefaultCreditsConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		channel := "sms"
		if i == 2 {
			channel = "email"
		}
		_, err := f.svc.AddCredits(ctx, creditdomain.AddCreditsRequest{TenantID: f.tenant(), Channel: channel, Amount: int64(i + 1)})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: f.tenant(), PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.TopUps, 2)
	assert.EqualValues(t, 5, first.TopUps[0].Amount)
	assert.EqualValues(t, 4, first.TopUps[1].Amount)
	require.NotEmpty(t, first.NextPageToken)

	second, err := f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: f.tenant(), PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.TopUps, 2)
	assert.EqualValues(t, 3, second.TopUps[0].Amount)

	third, err := f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: f.tenant(), PageSize: 2, PageToken: second.NextPageToken})
	require.NoError(t, err)
	require.Len(t, third.TopUps, 1)
	assert.Empty(t, third.NextPageToken)

	smsOnly, err := f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: f.tenant(), Channel: "sms"})
	require.NoError(t, err)
	assert.Len(t, smsOnly.TopUps, 4)

	_, err = f.svc.ListTopUps(ctx, creditdomain.ListTopUpsRequest{TenantID: f.tenant(), PageToken: "not-a-token"})
	assert.ErrorIs(t, err, creditdomain.ErrInvalidPageToken)
}
