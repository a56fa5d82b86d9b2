package commands

import (
	"fmt"
	"os/user"
	"slices"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/services/capacity"
	"github.com/hpc-tools/usage-atlas/pkg/services/config"
	"github.com/hpc-tools/usage-atlas/pkg/store/inventory"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
)

const commandTimeout = 60 * time.Second

// Env is shared by all commands. Settings is filled in once the global flags
// are parsed, before any command runs.
type Env struct {
	Settings    *config.Settings
	Runner      slurm.Runner
	Reporter    *export.Reporter
	Now         func() time.Time
	CurrentUser func() (string, error)
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) currentUser() (string, error) {
	if e.CurrentUser != nil {
		return e.CurrentUser()
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func (e *Env) calculator() capacity.Calculator {
	return capacity.NewCalculator(e.Settings.Capacity)
}

func (e *Env) inventory() inventory.Store {
	return inventory.NewStore(e.Settings.InventoryPath)
}

func (e *Env) checkCluster(cluster string) error {
	if cluster == "" || slices.Contains(e.Settings.Clusters, cluster) {
		return nil
	}
	return fmt.Errorf("unknown cluster %q, expected one of %v", cluster, e.Settings.Clusters)
}

func checkChoice(flag, value string, choices []string) error {
	if slices.Contains(choices, value) {
		return nil
	}
	return fmt.Errorf("invalid --%s %q, expected one of %v", flag, value, choices)
}
