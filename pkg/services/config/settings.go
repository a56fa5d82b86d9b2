package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/services/capacity"
	"github.com/hpc-tools/usage-atlas/pkg/store/inventory"
	"github.com/spf13/viper"
)

const (
	EnvPrefix        = "USAGE_ATLAS"
	DefaultCacheFile = ".my_hpc_usage.env"
	DefaultCacheTTL  = 10 * time.Minute
)

var DefaultClusters = []string{"baobab", "yggdrasil", "bamboo"}

type Settings struct {
	Clusters      []string          `mapstructure:"clusters"`
	InventoryPath string            `mapstructure:"inventory_path"`
	AssocCluster  string            `mapstructure:"assoc_cluster"`
	GroupsFile    string            `mapstructure:"groups_file"`
	Budget        BudgetSettings    `mapstructure:"budget"`
	Capacity      capacity.Settings `mapstructure:"capacity"`
	Cache         CacheSettings     `mapstructure:"cache"`
}

type BudgetSettings struct {
	PI        string `mapstructure:"pi"`
	Partition string `mapstructure:"partition"`
	// TeamSize splits the capacity into fair shares; 0 counts the users seen in the report.
	TeamSize int `mapstructure:"team_size"`
}

type CacheSettings struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// LoadSettings reads the settings file at path, if any, on top of the
// defaults. USAGE_ATLAS_* environment variables override both.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if settings.Cache.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("unable to get home directory: %w", err)
		}
		settings.Cache.Path = filepath.Join(home, DefaultCacheFile)
	}
	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	defaults := capacity.DefaultSettings()

	v.SetDefault("clusters", DefaultClusters)
	v.SetDefault("inventory_path", inventory.DefaultPathTemplate)
	v.SetDefault("assoc_cluster", "Baobab")
	v.SetDefault("groups_file", "")
	v.SetDefault("budget.pi", "")
	v.SetDefault("budget.partition", "")
	v.SetDefault("budget.team_size", 0)
	v.SetDefault("capacity.hours_per_year", defaults.HoursPerYear)
	v.SetDefault("capacity.usage_ratio", defaults.UsageRatio)
	v.SetDefault("capacity.lifetime_years", defaults.LifetimeYears)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl", DefaultCacheTTL)
}
