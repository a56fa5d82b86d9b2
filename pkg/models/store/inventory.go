package store

// InventoryNode is a node entry of the simplified YAML inventory.
// Numeric fields that are sometimes written as strings are kept as text.
type InventoryNode struct {
	SerialNumber         string          `yaml:"sn"`
	CPU                  int             `yaml:"cpu"`
	Memory               int             `yaml:"mem"`
	GPUNumber            int             `yaml:"gpunumber"`
	GPUDeleted           int             `yaml:"gpudeleted"`
	GPUModel             string          `yaml:"gpumodel"`
	GPUMemory            string          `yaml:"gpumemory"`
	PurchaseDate         string          `yaml:"purchasedate"`
	Billing              string          `yaml:"billing"`
	Leasing              *InventoryLease `yaml:"leasing,omitempty"`
	ExtendedProdInMonths int             `yaml:"extended_prod_in_months"`
}

type InventoryLease struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// Inventory is keyed by node identifier.
type Inventory map[string]InventoryNode
