package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/services/budget"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	KeyMyUsage         = "HPC_MY_USAGE"
	KeyTeamUsage       = "HPC_TEAM_USAGE"
	KeyBudgetYear      = "HPC_TEAM_BUDGET_YEAR"
	KeyBudgetByCluster = "HPC_TEAM_BUDGET_BY_CLUSTER"
	KeyUsersInfo       = "HPC_USERS_INFO"
	KeyTeamPercent     = "HPC_TEAM_PCT"
	KeyMyPercent       = "HPC_MY_PCT"
	KeyMyFairShare     = "HPC_MY_FAIR_SHARE_PCT"
	KeyMaxPercent      = "HPC_MAX_PCT"
	KeyTeamSize        = "HPC_TEAM_SIZE"
	KeyCacheKey        = "HPC_CACHE_KEY"
	KeyLastUpdate      = "LAST_HPC_USAGE_UPDATE"
)

type cachedService struct {
	inner budget.Service
	path  string
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedService keeps the last budget in a sourceable env file and serves it
// while it is younger than ttl and was computed for the same year, PI, partition and clusters.
func NewCachedService(inner budget.Service, path string, ttl time.Duration, now func() time.Time) budget.Service {
	if now == nil {
		now = time.Now
	}
	return &cachedService{inner: inner, path: path, ttl: ttl, now: now}
}

// Key identifies the inputs a cached budget depends on.
func Key(req budget.Request) string {
	clusters := slices.Clone(req.Clusters)
	slices.Sort(clusters)
	return fmt.Sprintf("%d:%s:%s:%s", req.Year, req.PI, req.Partition, strings.Join(clusters, ","))
}

func (c *cachedService) Budget(ctx context.Context, req budget.Request) (*domain.BudgetReport, error) {
	logger := zerolog.Ctx(ctx)
	if req.Year == 0 {
		req.Year = c.now().Year()
	}

	if !req.Refresh {
		report, err := c.read(req)
		if err == nil {
			logger.Debug().Str("path", c.path).Msg("budget served from cache")
			return report, nil
		}
		logger.Debug().Err(err).Str("path", c.path).Msg("budget cache miss")
	}

	report, err := c.inner.Budget(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.write(req, report); err != nil {
		logger.Warn().Err(err).Str("path", c.path).Msg("failed to write budget cache")
	}
	return report, nil
}

func (c *cachedService) read(req budget.Request) (*domain.BudgetReport, error) {
	env, err := godotenv.Read(c.path)
	if err != nil {
		return nil, err
	}
	if env[KeyCacheKey] != Key(req) {
		return nil, fmt.Errorf("cache key %q does not match %q", env[KeyCacheKey], Key(req))
	}

	updated, err := time.Parse(time.RFC3339, env[KeyLastUpdate])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyLastUpdate, err)
	}
	if c.now().Sub(updated) > c.ttl {
		return nil, fmt.Errorf("cache is stale since %s", updated.Add(c.ttl).Format(time.RFC3339))
	}

	report := &domain.BudgetReport{
		User:        req.User,
		Accounts:    []string{req.PI},
		Partition:   req.Partition,
		Year:        req.Year,
		GeneratedAt: updated,
		Cached:      true,
	}
	if report.Capacity, err = parseFloat(env, KeyBudgetYear); err != nil {
		return nil, err
	}
	if report.TeamUsage, err = parseFloat(env, KeyTeamUsage); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(env[KeyBudgetByCluster]), &report.CapacityByCluster); err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyBudgetByCluster, err)
	}
	if err := json.Unmarshal([]byte(env[KeyUsersInfo]), &report.Usage.ByUser); err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyUsersInfo, err)
	}
	report.Usage.ByCluster = transpose(report.Usage.ByUser)

	report.TeamSize = req.TeamSize
	if report.TeamSize <= 0 {
		if report.TeamSize, err = strconv.Atoi(env[KeyTeamSize]); err != nil {
			return nil, fmt.Errorf("parse %s: %w", KeyTeamSize, err)
		}
	}
	if req.User != "" {
		report.UserUsage = report.Usage.UserTotal(req.User)
	}
	report.Metrics = budget.ComputeMetrics(report.Capacity, report.TeamUsage, report.UserUsage, report.TeamSize)
	return report, nil
}

func (c *cachedService) write(req budget.Request, report *domain.BudgetReport) error {
	byCluster, err := json.Marshal(report.CapacityByCluster)
	if err != nil {
		return err
	}
	usersInfo, err := json.Marshal(report.Usage.ByUser)
	if err != nil {
		return err
	}

	env := map[string]string{
		KeyMyUsage:         formatFloat(report.UserUsage),
		KeyTeamUsage:       formatFloat(report.TeamUsage),
		KeyBudgetYear:      formatFloat(report.Capacity),
		KeyBudgetByCluster: string(byCluster),
		KeyUsersInfo:       string(usersInfo),
		KeyTeamPercent:     formatPercent(report.Metrics.TeamPercentOfCapacity),
		KeyMyPercent:       formatPercent(report.Metrics.UserPercentOfCapacity),
		KeyMyFairShare:     formatPercent(report.Metrics.UserPercentOfFairShare),
		KeyMaxPercent:      formatPercent(report.Metrics.FairSharePercent),
		KeyTeamSize:        strconv.Itoa(report.TeamSize),
		KeyCacheKey:        Key(req),
		KeyLastUpdate:      c.now().Format(time.RFC3339),
	}

	if err := godotenv.Write(env, c.path); err != nil {
		return err
	}
	return os.Chmod(c.path, 0o600)
}

func parseFloat(env map[string]string, key string) (float64, error) {
	value, err := strconv.ParseFloat(env[key], 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func transpose(m map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for outer, inner := range m {
		for key, value := range inner {
			if out[key] == nil {
				out[key] = make(map[string]float64)
			}
			out[key][outer] = value
		}
	}
	return out
}
