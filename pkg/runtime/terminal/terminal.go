package terminal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/commands"
	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/services/config"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	env        *commands.Env
	logOutput  io.Writer
	configPath string
	logLevel   string
	rootCmd    *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Runner    slurm.Runner
	Output    io.Writer
	LogOutput io.Writer
	Now       func() time.Time
	// CurrentUser overrides the login of the process owner.
	CurrentUser func() (string, error)
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Runner == nil {
		opts.Runner = slurm.NewExecRunner()
	}

	cli := &CLI{
		env: &commands.Env{
			Runner:      opts.Runner,
			Reporter:    export.NewReporter(opts.Output),
			Now:         opts.Now,
			CurrentUser: opts.CurrentUser,
		},
		logOutput: opts.LogOutput,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs replaces the process arguments, mostly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "usage-atlas",
		Short:             "HPC capacity and usage accounting",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}

	cmd.PersistentFlags().StringVar(&cli.configPath, "config", "", "Path to the settings file (YAML)")
	cmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(commands.NewCapacityCmd(cli.env))
	cmd.AddCommand(commands.NewUsageCmd(cli.env))
	cmd.AddCommand(commands.NewBudgetCmd(cli.env))
	cmd.AddCommand(commands.NewHistoryCmd(cli.env))
	cmd.AddCommand(commands.NewGroupsCmd(cli.env))

	return cmd
}

// setup loads the settings and puts the logger in the command context.
func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	level, err := zerolog.ParseLevel(cli.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cli.logLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.logOutput, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	cmd.SetContext(logger.WithContext(cmd.Context()))

	settings, err := config.LoadSettings(cli.configPath)
	if err != nil {
		return err
	}
	cli.env.Settings = settings
	logger.Debug().Str("config", cli.configPath).Strs("clusters", settings.Clusters).Msg("settings loaded")
	return nil
}
