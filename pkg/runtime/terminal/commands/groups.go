package commands

import (
	"fmt"
	"strings"

	"github.com/hpc-tools/usage-atlas/pkg/services/config"
	"github.com/spf13/cobra"
)

type GroupsCmd struct {
	env *Env
}

func NewGroupsCmd(env *Env) *cobra.Command {
	gc := &GroupsCmd{env: env}
	return &cobra.Command{
		Use:   "groups [group]",
		Short: "List the research groups, or the PIs of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE:  gc.run,
	}
}

func (gc *GroupsCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if gc.env.Settings.GroupsFile == "" {
		return fmt.Errorf("no groups_file configured")
	}
	registry, err := config.NewGroupRegistry(gc.env.Settings.GroupsFile)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		pis, err := registry.GetPIs(ctx, args[0])
		if err != nil {
			return err
		}
		if len(pis) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No PIs found in group: %s\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PIs in group %s:\n%s\n", args[0], strings.Join(pis, "\n"))
		return nil
	}

	groups, err := registry.GetGroups(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Groups:\n%s\n", strings.Join(groups, "\n"))
	return nil
}
