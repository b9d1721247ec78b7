package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
)

func baseConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestBootstrapInMemory(t *testing.T) {
	cfg := baseConfig(t)
	rt, err := Bootstrap(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &memory.Store{}, rt.Store)
	assert.Nil(t, rt.Redis)
	assert.Nil(t, rt.Cache)
	assert.Nil(t, rt.Pool)

	org := uuid.New()
	_, err = rt.Ledger.CreateExpense(context.Background(), ledger.CreateExpenseInput{OrganizationID: org, Description: "Hielo", Amount: "30"})
	require.NoError(t, err)
	assert.True(t, rt.Reports.KPIs(context.Background(), org).Expenses.Equal(decimal.NewFromInt(30)))
}

func TestBootstrapWithCache(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := baseConfig(t)
	cfg.RedisAddr = srv.Addr()
	cfg.ReportCacheTTL = time.Minute

	rt, err := Bootstrap(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer rt.Close()
	require.NotNil(t, rt.Cache)

	org := uuid.New()
	rt.Reports.Dashboard(context.Background(), org)
	_, err = rt.Ledger.CreateExpense(context.Background(), ledger.CreateExpenseInput{OrganizationID: org, Description: "Luz", Amount: "10"})
	require.NoError(t, err)

	ver, err := rt.Cache.Version(context.Background(), org)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestQueueRedis(t *testing.T) {
	_, err := (&Config{}).QueueRedis()
	assert.ErrorIs(t, err, ErrQueueDisabled)

	opts, err := (&Config{RedisAddr: "redis://:pw@cache:6380/2"}).QueueRedis()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
}
