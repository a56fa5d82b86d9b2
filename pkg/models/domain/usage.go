package domain

// UsageRow is one parsed line of an accounting report.
type UsageRow struct {
	Cluster    string
	Login      string // empty for account level roll-up rows
	ProperName string
	Account    string
	TRES       string
	Used       float64
}

type UserTotal struct {
	Login string
	Used  float64
}

// UsageAggregate holds the same totals in both orientations.
type UsageAggregate struct {
	ByCluster map[string]map[string]float64 // cluster -> login -> used
	ByUser    map[string]map[string]float64 // login -> cluster -> used
}

func (a *UsageAggregate) Total() float64 {
	var total float64
	for _, logins := range a.ByCluster {
		for _, used := range logins {
			total += used
		}
	}
	return total
}

// UserTotal sums one login across all clusters.
func (a *UsageAggregate) UserTotal(login string) float64 {
	var total float64
	for _, used := range a.ByUser[login] {
		total += used
	}
	return total
}
