package adapters

import (
	"testing"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/models/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapInventoryNode_AllFields(t *testing.T) {
	// Given
	entry := store.InventoryNode{
		SerialNumber: "SN-0042",
		CPU:          64,
		Memory:       1024,
		GPUNumber:    8,
		GPUDeleted:   1,
		GPUModel:     "NVIDIA A100",
		GPUMemory:    "81920.0",
		PurchaseDate: "2021-06-15",
		Billing:      "420",
		Leasing:      &store.InventoryLease{StartDate: "2023-01-01", EndDate: "2026-12-31"},
	}

	// When
	node, err := MapInventoryNode("gpu042", entry)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "gpu042", node.ID)
	assert.Equal(t, 420, node.Billing)
	assert.Equal(t, 81920, node.GPUMemory)
	assert.Equal(t, 7, node.NetGPU())
	assert.Equal(t, time.Date(2021, time.June, 15, 0, 0, 0, 0, time.UTC), node.PurchaseDate)
	require.NotNil(t, node.Lease)
	assert.Equal(t, time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), node.Lease.End)
}

func TestMapInventoryNode_EmptyLeaseIsIgnored(t *testing.T) {
	node, err := MapInventoryNode("cpu001", store.InventoryNode{
		Billing:      "10",
		PurchaseDate: "2024-01-01",
		Leasing:      &store.InventoryLease{},
	})

	require.NoError(t, err)
	assert.Nil(t, node.Lease)
}

func TestMapInventoryNode_MissingDateIsKept(t *testing.T) {
	node, err := MapInventoryNode("cpu002", store.InventoryNode{Billing: "10"})

	require.NoError(t, err)
	assert.True(t, node.PurchaseDate.IsZero())
}

func TestMapInventory_SkipsMalformedEntries(t *testing.T) {
	// Given
	inv := store.Inventory{
		"cpu001": {Billing: "10", PurchaseDate: "2024-01-01"},
		"cpu002": {Billing: "ten", PurchaseDate: "2024-01-01"},
		"cpu003": {Billing: "10", PurchaseDate: "01/02/2024"},
	}

	// When
	nodes, errs := MapInventory(inv)

	// Then
	require.Len(t, nodes, 1)
	assert.Contains(t, nodes, "cpu001")
	require.Len(t, errs, 2)

	var recordErr *domain.RecordError
	require.ErrorAs(t, errs[0], &recordErr)
	assert.Equal(t, "cpu002", recordErr.Node)
	assert.Equal(t, "billing", recordErr.Field)
	require.ErrorAs(t, errs[1], &recordErr)
	assert.Equal(t, "purchasedate", recordErr.Field)
}
