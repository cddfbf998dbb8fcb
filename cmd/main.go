package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/ltvrank/internal/adapters/batchio"
	service "github.com/okian/ltvrank/internal/app"
	"github.com/okian/ltvrank/internal/config"
	"github.com/okian/ltvrank/pkg/logger"
)

// cliFlags holds values bound to persistent flags. They override the loaded
// configuration only when set on the command line.
type cliFlags struct {
	configPath  string
	input       string
	output      string
	format      string
	metricsFile string
	logLevel    string
	topN        int
}

// cli carries state shared between the root command and its subcommands.
type cli struct {
	flags  cliFlags
	cfg    *config.Config
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "ltvrank",
		Short:         "Rank customers by simplified lifetime value from an event batch",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.newService().Run(cmd.Context(),
				batchio.NewFileSource(c.cfg.Input),
				batchio.NewFileSink(c.cfg.Output),
			)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	pf.StringVarP(&c.flags.input, "input", "i", "", "event batch path, - for stdin")
	pf.StringVarP(&c.flags.output, "output", "o", "", "result path, - for stdout")
	pf.StringVar(&c.flags.format, "format", "", "result encoding: json or yaml")
	pf.StringVar(&c.flags.metricsFile, "metrics-file", "", "write batch metrics in Prometheus text format")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.Flags().IntVarP(&c.flags.topN, "top", "n", 0, "number of customers to return")

	rootCmd.AddCommand(newNormalizeCmd(c))
	rootCmd.AddCommand(newGenerateCmd(c))
	return rootCmd
}

// setup loads configuration (defaults -> file -> env -> flags) and initializes logging.
func (c *cli) setup(cmd *cobra.Command) error {
	c.stderr = cmd.ErrOrStderr()

	cfg, err := config.Load(cmd.Context(), c.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = c.flags.input
	}
	if flags.Changed("output") {
		cfg.Output = c.flags.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = c.flags.format
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = c.flags.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.flags.logLevel
	}
	if flags.Changed("top") {
		cfg.TopN = c.flags.topN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWithWriter(c.stderr, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	return nil
}

func (c *cli) newService() *service.Service {
	return service.New(
		service.WithLogger(logger.Named("ltvrank")),
		service.WithTopN(c.cfg.TopN),
		service.WithOutputFormat(c.cfg.OutputFormat),
		service.WithCurrencySuffix(c.cfg.CurrencySuffix),
		service.WithLTVMultiplier(c.cfg.LTVMultiplier),
		service.WithLTVPrecision(c.cfg.LTVPrecision),
		service.WithMetricsFile(c.cfg.MetricsFile),
	)
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ltvrank: %v\n", err)
		os.Exit(1)
	}
}
