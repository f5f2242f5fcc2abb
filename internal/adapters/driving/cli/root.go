// Package cli provides the lexsync command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexsync/internal/core/ports/driving"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	Verbose     bool
	JSONLogs    bool
	ConfigFile  string
	DataDir     string
	MetricsFile string
}

// Services are the core services the commands drive.
type Services struct {
	Pipeline driving.PipelineService
	Sources  driving.SourceService
	Models   driving.ModelService
}

// Bootstrap builds the services once flags are parsed. The returned
// cleanup runs after the command, whether it failed or not.
type Bootstrap func(ctx context.Context, opts GlobalOptions) (*Services, func() error, error)

var (
	globals   GlobalOptions
	bootstrap Bootstrap
	cleanup   func() error

	pipelineService driving.PipelineService
	sourceService   driving.SourceService
	modelService    driving.ModelService
)

// skipBootstrap marks commands that need no services.
const skipBootstrap = "lexsync/skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "lexsync",
	Short: "Ingest Italian and EU legislation into a searchable corpus",
	Long: `lexsync downloads legislation from Normattiva and EUR-Lex and loads it,
article by article, into a local corpus.

Every source goes through three phases:
  connect  probe the upstream and estimate the number of articles
  model    check that the corpus schema can hold them
  load     download, parse, validate and store the articles

Each phase is recorded in the sync ledger.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupCommand,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "Print progress and debug logs")
	flags.BoolVar(&globals.JSONLogs, "json-logs", false, "Emit logs as JSON")
	flags.StringVar(&globals.ConfigFile, "config", "", "Config file (default ~/.lexsync/config.toml)")
	flags.StringVar(&globals.DataDir, "data-dir", "", "Directory holding the database (default ~/.lexsync/data)")
	flags.StringVar(&globals.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
}

// SetBootstrap installs the service factory. main calls it before Execute.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cleanup != nil {
		if cerr := cleanup(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		cleanup = nil
	}
	return err
}

func setupCommand(cmd *cobra.Command, _ []string) error {
	logger.Init(globals.JSONLogs)
	logger.SetVerbose(globals.Verbose)

	if bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
		return nil
	}
	svc, done, err := bootstrap(cmd.Context(), globals)
	if err != nil {
		return err
	}
	cleanup = done
	pipelineService = svc.Pipeline
	sourceService = svc.Sources
	modelService = svc.Models
	return nil
}

// errNotConfigured reports a command run without its service.
func errNotConfigured(name string) error {
	return errors.Newf("%s service not configured", name)
}

// commandContext returns the command context, falling back to Background
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
