package domain

import "time"

// NodeRecord is a single compute node as known by the inventory.
type NodeRecord struct {
	ID              string
	SerialNumber    string
	Billing         int // billing units charged per hour of use
	CPU             int
	Memory          int // GB
	GPUCount        int
	GPUDeleted      int
	GPUModel        string
	GPUMemory       int // MB
	PurchaseDate    time.Time
	Lease           *Lease
	ExtensionMonths int // only used when the node is not leased
}

// NetGPU is the number of GPUs still installed in the node.
func (n NodeRecord) NetGPU() int {
	return n.GPUCount - n.GPUDeleted
}

// Lease holds the lease bounds of a node. A zero bound is absent.
type Lease struct {
	Start time.Time
	End   time.Time
}

// ProductionWindow is the [Start, End) interval a node counts toward capacity.
type ProductionWindow struct {
	Start time.Time
	End   time.Time
}

// NodeCapacity is one line of the per-node capacity listing.
type NodeCapacity struct {
	Node                NodeRecord
	Window              ProductionWindow
	MonthsInProduction  int
	RemainingMonths     int
	BillingContribution float64
}

type CapacitySummary struct {
	Nodes        int
	Skipped      int
	CPU          int
	GPU          int
	Memory       int
	GPUMemory    int
	Billing      float64
	CPUHoursYear float64
}
