package slurm

import (
	"context"
	"fmt"
	"strings"
)

// PartitionResolver lists the nodes that belong to partitions.
type PartitionResolver interface {
	Nodes(ctx context.Context, cluster string, partitions ...string) ([]string, error)
}

type partitionResolver struct {
	runner Runner
}

func NewPartitionResolver(runner Runner) PartitionResolver {
	return &partitionResolver{runner: runner}
}

func (r *partitionResolver) Nodes(ctx context.Context, cluster string, partitions ...string) ([]string, error) {
	if len(partitions) == 0 {
		return nil, fmt.Errorf("at least one partition must be provided")
	}
	out, err := r.runner.Run(ctx, "sinfo",
		"-h",
		"--clusters", cluster,
		"-p", strings.Join(partitions, ","),
		"-o", "%N",
	)
	if err != nil {
		return nil, fmt.Errorf("sinfo for %s on %s: %w", strings.Join(partitions, ","), cluster, err)
	}

	var nodes []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		// sinfo prints a CLUSTER: banner when --clusters is given
		if line == "" || strings.HasPrefix(line, "CLUSTER:") {
			continue
		}
		expanded, err := ExpandHostlist(line)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, expanded...)
	}
	return nodes, nil
}
