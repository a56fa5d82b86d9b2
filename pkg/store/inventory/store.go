package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hpc-tools/usage-atlas/pkg/models/store"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const DefaultPathTemplate = "/opt/cluster/inventory/simplified_inventory_{cluster}.yaml"

// Store loads the node inventory of a cluster.
type Store interface {
	Load(ctx context.Context, cluster string) (store.Inventory, error)
}

type fileStore struct {
	pathTemplate string
}

// NewStore returns a Store reading one YAML file per cluster. The
// {cluster} placeholder of pathTemplate is replaced by the cluster name.
func NewStore(pathTemplate string) Store {
	if pathTemplate == "" {
		pathTemplate = DefaultPathTemplate
	}
	return &fileStore{pathTemplate: pathTemplate}
}

func (s *fileStore) Path(cluster string) string {
	return strings.ReplaceAll(s.pathTemplate, "{cluster}", cluster)
}

func (s *fileStore) Load(ctx context.Context, cluster string) (store.Inventory, error) {
	path := s.Path(cluster)
	zerolog.Ctx(ctx).Debug().Str("cluster", cluster).Str("path", path).Msg("reading inventory")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory for %s: %w", cluster, err)
	}
	return Parse(data)
}

// Parse decodes an inventory document keyed by node identifier.
func Parse(data []byte) (store.Inventory, error) {
	inventory := store.Inventory{}
	if err := yaml.Unmarshal(data, &inventory); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	return inventory, nil
}
