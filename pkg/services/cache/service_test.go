package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/services/budget"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBudget struct {
	mock.Mock
}

func (m *mockBudget) Budget(ctx context.Context, req budget.Request) (*domain.BudgetReport, error) {
	args := m.Called(ctx, req)
	report, _ := args.Get(0).(*domain.BudgetReport)
	return report, args.Error(1)
}

var generatedAt = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func freshReport() *domain.BudgetReport {
	return &domain.BudgetReport{
		User:              "alice",
		Accounts:          []string{"kalousis"},
		Partition:         "private-kalousis-gpu",
		Year:              2025,
		TeamSize:          4,
		GeneratedAt:       generatedAt,
		CapacityByCluster: map[string]float64{"baobab": 8000, "yggdrasil": 2000},
		Capacity:          10000,
		TeamUsage:         5000,
		UserUsage:         2000,
		Usage: domain.UsageAggregate{
			ByCluster: map[string]map[string]float64{"baobab": {"alice": 1500, "bob": 3000}, "yggdrasil": {"alice": 500}},
			ByUser:    map[string]map[string]float64{"alice": {"baobab": 1500, "yggdrasil": 500}, "bob": {"baobab": 3000}},
		},
		Metrics: budget.ComputeMetrics(10000, 5000, 2000, 4),
	}
}

type fixture struct {
	inner *mockBudget
	path  string
	clock time.Time
	svc   budget.Service
}

func setupFixture(t *testing.T) *fixture {
	f := &fixture{
		inner: &mockBudget{},
		path:  filepath.Join(t.TempDir(), ".my_hpc_usage.env"),
		clock: generatedAt,
	}
	f.svc = NewCachedService(f.inner, f.path, 10*time.Minute, func() time.Time { return f.clock })
	return f
}

func request() budget.Request {
	return budget.Request{
		User:      "alice",
		PI:        "kalousis",
		Partition: "private-kalousis-gpu",
		Clusters:  []string{"yggdrasil", "baobab"},
		Year:      2025,
	}
}

func TestCachedService_MissComputesAndWrites(t *testing.T) {
	// Given
	f := setupFixture(t)
	ctx := context.Background()
	f.inner.On("Budget", ctx, request()).Return(freshReport(), nil).Once()

	// When
	report, err := f.svc.Budget(ctx, request())

	// Then
	require.NoError(t, err)
	assert.False(t, report.Cached)
	env, err := godotenv.Read(f.path)
	require.NoError(t, err)
	assert.Equal(t, "2000", env[KeyMyUsage])
	assert.Equal(t, "5000", env[KeyTeamUsage])
	assert.Equal(t, "10000", env[KeyBudgetYear])
	assert.Equal(t, "50.00", env[KeyTeamPercent])
	assert.Equal(t, "20.00", env[KeyMyPercent])
	assert.Equal(t, "80.00", env[KeyMyFairShare])
	assert.Equal(t, "25.00", env[KeyMaxPercent])
	assert.Equal(t, "2025:kalousis:private-kalousis-gpu:baobab,yggdrasil", env[KeyCacheKey])
	assert.Equal(t, "2025-06-01T12:00:00Z", env[KeyLastUpdate])
	assert.JSONEq(t, `{"baobab":8000,"yggdrasil":2000}`, env[KeyBudgetByCluster])
	f.inner.AssertExpectations(t)
}

func TestCachedService_HitWithinTTL(t *testing.T) {
	// Given
	f := setupFixture(t)
	ctx := context.Background()
	f.inner.On("Budget", ctx, request()).Return(freshReport(), nil).Once()
	_, err := f.svc.Budget(ctx, request())
	require.NoError(t, err)

	// When
	f.clock = generatedAt.Add(5 * time.Minute)
	report, err := f.svc.Budget(ctx, request())

	// Then
	require.NoError(t, err)
	assert.True(t, report.Cached)
	assert.Equal(t, 10000.0, report.Capacity)
	assert.Equal(t, 5000.0, report.TeamUsage)
	assert.Equal(t, 2000.0, report.UserUsage)
	assert.Equal(t, 4, report.TeamSize)
	assert.Equal(t, 3000.0, report.Usage.ByCluster["baobab"]["bob"])
	assert.Equal(t, freshReport().Metrics, report.Metrics)
	f.inner.AssertNumberOfCalls(t, "Budget", 1)
}

func TestCachedService_HitRecomputesPersonalUsageForOtherUser(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.inner.On("Budget", ctx, request()).Return(freshReport(), nil).Once()
	_, err := f.svc.Budget(ctx, request())
	require.NoError(t, err)

	req := request()
	req.User = "bob"
	report, err := f.svc.Budget(ctx, req)

	require.NoError(t, err)
	assert.True(t, report.Cached)
	assert.Equal(t, 3000.0, report.UserUsage)
	assert.Equal(t, "bob", report.User)
}

func TestCachedService_Misses(t *testing.T) {
	tests := []struct {
		name   string
		change func(f *fixture, req *budget.Request)
	}{
		{
			name:   "stale",
			change: func(f *fixture, _ *budget.Request) { f.clock = generatedAt.Add(11 * time.Minute) },
		},
		{
			name:   "other partition",
			change: func(_ *fixture, req *budget.Request) { req.Partition = "shared-gpu" },
		},
		{
			name:   "other clusters",
			change: func(_ *fixture, req *budget.Request) { req.Clusters = []string{"baobab", "bamboo"} },
		},
		{
			name:   "other year",
			change: func(_ *fixture, req *budget.Request) { req.Year = 2024 },
		},
		{
			name:   "refresh",
			change: func(_ *fixture, req *budget.Request) { req.Refresh = true },
		},
		{
			name: "unreadable file",
			change: func(f *fixture, _ *budget.Request) {
				_ = os.WriteFile(f.path, []byte("HPC_CACHE_KEY=2025:kalousis:private-kalousis-gpu:baobab,yggdrasil\n"), 0o600)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			f := setupFixture(t)
			ctx := context.Background()
			f.inner.On("Budget", ctx, mock.Anything).Return(freshReport(), nil)
			_, err := f.svc.Budget(ctx, request())
			require.NoError(t, err)

			// When
			req := request()
			tt.change(f, &req)
			report, err := f.svc.Budget(ctx, req)

			// Then
			require.NoError(t, err)
			assert.False(t, report.Cached)
			f.inner.AssertNumberOfCalls(t, "Budget", 2)
		})
	}
}

func TestKey_IgnoresClusterOrder(t *testing.T) {
	// Given
	req := request()
	reordered := request()
	reordered.Clusters = []string{"baobab", "yggdrasil"}
	fewer := request()
	fewer.Clusters = []string{"baobab"}

	// When
	key := Key(req)

	// Then
	assert.Equal(t, key, Key(reordered))
	assert.NotEqual(t, key, Key(fewer))
	assert.Equal(t, []string{"yggdrasil", "baobab"}, req.Clusters)
}

func TestCachedService_WriteFailureIsNotFatal(t *testing.T) {
	inner := &mockBudget{}
	ctx := context.Background()
	inner.On("Budget", ctx, request()).Return(freshReport(), nil)
	path := filepath.Join(t.TempDir(), "missing", "dir", "cache.env")
	svc := NewCachedService(inner, path, time.Minute, func() time.Time { return generatedAt })

	report, err := svc.Budget(ctx, request())

	require.NoError(t, err)
	assert.Equal(t, 5000.0, report.TeamUsage)
}

func TestCachedService_InnerErrorIsReturned(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.inner.On("Budget", ctx, request()).Return(nil, assert.AnError)

	_, err := f.svc.Budget(ctx, request())

	assert.ErrorIs(t, err, assert.AnError)
	_, statErr := os.Stat(f.path)
	assert.True(t, os.IsNotExist(statErr))
}
