package adapters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/models/store"
)

const inventoryDateLayout = "2006-01-02"

// MapInventory converts inventory entries into node records. Entries that
// cannot be read are left out and reported in the returned errors, ordered by
// node identifier. Missing dates are not checked here.
func MapInventory(inv store.Inventory) (map[string]domain.NodeRecord, []error) {
	ids := make([]string, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make(map[string]domain.NodeRecord, len(inv))
	var errs []error
	for _, id := range ids {
		node, err := MapInventoryNode(id, inv[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nodes[id] = node
	}
	return nodes, errs
}

func MapInventoryNode(id string, n store.InventoryNode) (domain.NodeRecord, error) {
	billing, err := parseWholeNumber(n.Billing)
	if err != nil {
		return domain.NodeRecord{}, &domain.RecordError{Node: id, Field: "billing", Err: err}
	}

	gpuMemory := 0
	if strings.TrimSpace(n.GPUMemory) != "" {
		gpuMemory, err = parseWholeNumber(n.GPUMemory)
		if err != nil {
			return domain.NodeRecord{}, &domain.RecordError{Node: id, Field: "gpumemory", Err: err}
		}
	}

	purchase, err := parseDate(n.PurchaseDate)
	if err != nil {
		return domain.NodeRecord{}, &domain.RecordError{Node: id, Field: "purchasedate", Err: err}
	}

	node := domain.NodeRecord{
		ID:              id,
		SerialNumber:    n.SerialNumber,
		Billing:         billing,
		CPU:             n.CPU,
		Memory:          n.Memory,
		GPUCount:        n.GPUNumber,
		GPUDeleted:      n.GPUDeleted,
		GPUModel:        n.GPUModel,
		GPUMemory:       gpuMemory,
		PurchaseDate:    purchase,
		ExtensionMonths: n.ExtendedProdInMonths,
	}

	if n.Leasing != nil {
		start, err := parseDate(n.Leasing.StartDate)
		if err != nil {
			return domain.NodeRecord{}, &domain.RecordError{Node: id, Field: "leasing.start_date", Err: err}
		}
		end, err := parseDate(n.Leasing.EndDate)
		if err != nil {
			return domain.NodeRecord{}, &domain.RecordError{Node: id, Field: "leasing.end_date", Err: err}
		}
		if !start.IsZero() || !end.IsZero() {
			node.Lease = &domain.Lease{Start: start, End: end}
		}
	}

	return node, nil
}

// parseDate reads a YYYY-MM-DD date. An empty value is the zero time.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if len(value) > len(inventoryDateLayout) {
		value = value[:len(inventoryDateLayout)]
	}
	return time.Parse(inventoryDateLayout, value)
}

func parseWholeNumber(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", value)
	}
	return int(f), nil
}
