package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/models/store"
	"github.com/hpc-tools/usage-atlas/pkg/services/capacity"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) Load(ctx context.Context, cluster string) (store.Inventory, error) {
	args := m.Called(ctx, cluster)
	inv, _ := args.Get(0).(store.Inventory)
	return inv, args.Error(1)
}

type mockPartitions struct {
	mock.Mock
}

func (m *mockPartitions) Nodes(ctx context.Context, cluster string, partitions ...string) ([]string, error) {
	args := m.Called(ctx, cluster, partitions)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) UserUsage(ctx context.Context, q slurm.UsageQuery) (*slurm.UsageOutput, error) {
	args := m.Called(ctx, q)
	out, _ := args.Get(0).(*slurm.UsageOutput)
	return out, args.Error(1)
}

const teamBody = "baobab|alice|A. Lice|kalousis|billing|1,500\n" +
	"baobab|bob|B. Ob|kalousis|billing|3000\n" +
	"yggdrasil|alice|A. Lice|kalousis|billing|500\n"

func baobabInventory() store.Inventory {
	return store.Inventory{
		"cpu001": {CPU: 32, Billing: "10", PurchaseDate: "2023-01-01"},
		"cpu002": {CPU: 32, Billing: "10", PurchaseDate: "2023-01-01"},
		"gpu001": {CPU: 64, Billing: "999", PurchaseDate: "2023-01-01"},
		"broken": {Billing: "ten", PurchaseDate: "2023-01-01"},
	}
}

type fixture struct {
	inventory  *mockInventory
	partitions *mockPartitions
	reporter   *mockReporter
	service    *service
}

func setupFixture() *fixture {
	f := &fixture{
		inventory:  &mockInventory{},
		partitions: &mockPartitions{},
		reporter:   &mockReporter{},
	}
	svc := NewService(f.inventory, f.partitions, f.reporter, capacity.NewCalculator(capacity.DefaultSettings())).(*service)
	svc.now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.Local) }
	f.service = svc
	return f
}

func TestBudget_CombinesCapacityAndUsage(t *testing.T) {
	// Given
	f := setupFixture()
	ctx := context.Background()
	f.inventory.On("Load", ctx, "baobab").Return(baobabInventory(), nil)
	f.inventory.On("Load", ctx, "yggdrasil").Return(nil, errors.New("no such file"))
	f.partitions.On("Nodes", ctx, "baobab", []string{"private-kalousis-cpu"}).
		Return([]string{"cpu001", "cpu002", "cpu999"}, nil)
	f.reporter.On("UserUsage", ctx, slurm.UsageQuery{
		Account:    "kalousis",
		Start:      "2025-01-01",
		End:        "2026-01-01",
		TimeFormat: "Hours",
		AllUsers:   true,
		ReportType: slurm.ReportTypeUser,
	}).Return(&slurm.UsageOutput{Body: teamBody}, nil)

	// When
	report, err := f.service.Budget(ctx, Request{
		User:      "alice",
		PI:        "kalousis",
		Partition: "private-kalousis-cpu",
		Clusters:  []string{"baobab", "yggdrasil"},
		TeamSize:  4,
	})

	// Then
	require.NoError(t, err)
	capacityHours := 24 * 365 * 0.6 * 20
	assert.Equal(t, 2025, report.Year)
	assert.InDelta(t, capacityHours, report.CapacityByCluster["baobab"], 1e-6)
	assert.Zero(t, report.CapacityByCluster["yggdrasil"])
	assert.InDelta(t, capacityHours, report.Capacity, 1e-6)
	assert.Equal(t, 5000.0, report.TeamUsage)
	assert.Equal(t, 2000.0, report.UserUsage)
	assert.Equal(t, 500.0, report.Usage.ByUser["alice"]["yggdrasil"])
	assert.Equal(t, 4, report.TeamSize)
	assert.InDelta(t, 5000/capacityHours*100, report.Metrics.TeamPercentOfCapacity, 1e-9)
	assert.InDelta(t, 2000/(capacityHours/4)*100, report.Metrics.UserPercentOfFairShare, 1e-9)
	assert.Equal(t, 25.0, report.Metrics.FairSharePercent)
	assert.Equal(t, []string{"baobab", "yggdrasil"}, Clusters(report))
	f.inventory.AssertExpectations(t)
	f.partitions.AssertExpectations(t)
	f.reporter.AssertExpectations(t)
}

func TestBudget_TeamSizeDefaultsToUsersInReport(t *testing.T) {
	f := setupFixture()
	ctx := context.Background()
	f.reporter.On("UserUsage", ctx, mock.Anything).Return(&slurm.UsageOutput{Body: teamBody}, nil)

	report, err := f.service.Budget(ctx, Request{User: "bob", PI: "kalousis", Partition: "p", Year: 2024})

	require.NoError(t, err)
	assert.Equal(t, 2, report.TeamSize)
	assert.Equal(t, 50.0, report.Metrics.FairSharePercent)
	assert.Zero(t, report.Capacity)
	assert.Zero(t, report.Metrics.TeamPercentOfCapacity)
}

func TestBudget_UsageFailureIsReturned(t *testing.T) {
	f := setupFixture()
	ctx := context.Background()
	f.reporter.On("UserUsage", ctx, mock.Anything).Return(nil, errors.New("sreport: not found"))

	_, err := f.service.Budget(ctx, Request{PI: "kalousis", Partition: "p"})

	assert.ErrorContains(t, err, "team usage")
}

func TestBudget_RequiresPIAndPartition(t *testing.T) {
	f := setupFixture()

	_, err := f.service.Budget(context.Background(), Request{Partition: "p"})
	assert.EqualError(t, err, "pi account is required")

	_, err = f.service.Budget(context.Background(), Request{PI: "kalousis"})
	assert.EqualError(t, err, "partition is required")
}

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		team     float64
		user     float64
		teamSize int
		want     [4]float64
	}{
		{"fair share above team share", 1000, 500, 100, 10, [4]float64{50, 10, 100, 10}},
		{"no capacity", 0, 500, 100, 10, [4]float64{0, 0, 0, 10}},
		{"no team", 1000, 0, 0, 0, [4]float64{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(tt.capacity, tt.team, tt.user, tt.teamSize)

			assert.InDelta(t, tt.want[0], m.TeamPercentOfCapacity, 1e-9)
			assert.InDelta(t, tt.want[1], m.UserPercentOfCapacity, 1e-9)
			assert.InDelta(t, tt.want[2], m.UserPercentOfFairShare, 1e-9)
			assert.InDelta(t, tt.want[3], m.FairSharePercent, 1e-9)
		})
	}
}
