package commands

import (
	"context"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/adapters"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/services/capacity"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type CapacityCmd struct {
	cluster       string
	nodes         string
	partitions    []string
	summary       bool
	referenceYear int
	format        string
	env           *Env
}

func NewCapacityCmd(env *Env) *cobra.Command {
	cc := &CapacityCmd{env: env}
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "List the inventory of a nodeset or partitions and the CPU hours it provides in a year",
		RunE:  cc.run,
	}

	cmd.Flags().StringVarP(&cc.cluster, "cluster", "c", "", "Cluster on which to look up the compute nodes")
	cmd.Flags().StringVarP(&cc.nodes, "nodes", "n", "", "Nodeset to look up, e.g. cpu[001-004]")
	cmd.Flags().StringSliceVarP(&cc.partitions, "partitions", "p", nil, "Partitions to look up")
	cmd.Flags().BoolVarP(&cc.summary, "summary", "s", false, "Print the summary in addition to the node list")
	cmd.Flags().IntVar(&cc.referenceYear, "reference-year", 0, "Reference year (default: current year)")
	cmd.Flags().StringVar(&cc.format, "format", export.FormatPretty, "Output format: pretty, csv or html")

	_ = cmd.MarkFlagRequired("cluster")
	cmd.MarkFlagsMutuallyExclusive("nodes", "partitions")
	cmd.MarkFlagsOneRequired("nodes", "partitions")

	return cmd
}

func (cc *CapacityCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := cc.env.checkCluster(cc.cluster); err != nil {
		return err
	}
	if err := checkChoice("format", cc.format, export.Formats); err != nil {
		return err
	}
	year := cc.referenceYear
	if year == 0 {
		year = cc.env.now().Year()
	}

	ids, err := cc.nodeIDs(ctx)
	if err != nil {
		return err
	}

	inv, err := cc.env.inventory().Load(ctx, cc.cluster)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	records, errs := adapters.MapInventory(inv)
	for _, recordErr := range errs {
		zerolog.Ctx(ctx).Warn().Err(recordErr).Msg("skipping inventory record")
	}

	calc := cc.env.calculator()
	subset := capacity.FilterByMembership(records, ids)
	lines, err := calc.Nodes(subset, year)
	if err != nil {
		return fmt.Errorf("failed to compute node capacity: %w", err)
	}

	var summary *domain.CapacitySummary
	if cc.summary {
		if summary, err = calc.Summarize(subset, year); err != nil {
			return fmt.Errorf("failed to summarize capacity: %w", err)
		}
		summary.Skipped = len(errs)
	}

	return cc.env.Reporter.Render(adapters.MapCapacityReport(cc.cluster, year, lines, summary), cc.format)
}

func (cc *CapacityCmd) nodeIDs(ctx context.Context) ([]string, error) {
	if cc.nodes != "" {
		ids, err := slurm.ExpandHostlist(cc.nodes)
		if err != nil {
			return nil, fmt.Errorf("invalid nodeset: %w", err)
		}
		return ids, nil
	}

	ids, err := slurm.NewPartitionResolver(cc.env.Runner).Nodes(ctx, cc.cluster, cc.partitions...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve partition nodes: %w", err)
	}
	return ids, nil
}
