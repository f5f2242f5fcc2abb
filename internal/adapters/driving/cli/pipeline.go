package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/services"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// loadFlags are the flags shared by load and pipeline.
type loadFlags struct {
	dry            bool
	limit          int
	skipEmbeddings bool
	mode           string
	since          string
	stopAfter      string
}

var (
	loadOpts     = loadFlags{mode: string(domain.ModeFull)}
	pipelineOpts = loadFlags{mode: string(domain.ModeFull)}

	modelApply  bool
	modelOutput string

	updateEvery time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect [source-id]",
	Short: "Probe a source and estimate its size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipelineService == nil {
			return errNotConfigured("pipeline")
		}
		res, err := pipelineService.Connect(commandContext(cmd), args[0])
		return report(cmd, res, err)
	},
}

var modelCmd = &cobra.Command{
	Use:   "model [source-id]",
	Short: "Check the corpus schema for a source",
	Long: `Runs CONNECT and MODEL for a source and prints the target data model.
When the schema is not ready the proposed migration is printed; pass
--apply to run it.`,
	Args: cobra.ExactArgs(1),
	RunE: runModel,
}

var loadCmd = &cobra.Command{
	Use:   "load [source-id]",
	Short: "Run all phases and store the articles of a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipelineService == nil {
			return errNotConfigured("pipeline")
		}
		opts, err := loadOpts.options()
		if err != nil {
			return err
		}
		res, err := pipelineService.Load(commandContext(cmd), args[0], opts)
		return report(cmd, res, err)
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [source-id]",
	Short: "Run the pipeline for a source, optionally stopping early",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipelineService == nil {
			return errNotConfigured("pipeline")
		}
		opts, err := pipelineOpts.options()
		if err != nil {
			return err
		}
		res, err := pipelineService.Run(commandContext(cmd), args[0], opts)
		return report(cmd, res, err)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [source-id]",
	Short: "Load what changed since the last successful load",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipelineService == nil {
			return errNotConfigured("pipeline")
		}
		res, err := pipelineService.Update(commandContext(cmd), args[0])
		return report(cmd, res, err)
	},
}

var updateAllCmd = &cobra.Command{
	Use:   "update-all",
	Short: "Update every loaded source",
	Long: `Runs a delta update of every source that has completed a load.
With --every the updates repeat at that interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runUpdateAll,
}

func init() {
	modelCmd.Flags().BoolVar(&modelApply, "apply", false, "Run the proposed migration")
	modelCmd.Flags().StringVarP(&modelOutput, "output", "o", "text", "Output format: text or yaml")

	loadOpts.register(loadCmd, false)
	pipelineOpts.register(pipelineCmd, true)

	updateAllCmd.Flags().DurationVar(&updateEvery, "every", 0, "Repeat the update at this interval (e.g. 24h)")

	rootCmd.AddCommand(connectCmd, modelCmd, loadCmd, pipelineCmd, updateCmd, updateAllCmd)
}

func (f *loadFlags) register(cmd *cobra.Command, withStop bool) {
	flags := cmd.Flags()
	flags.BoolVar(&f.dry, "dry", false, "Validate without writing to the corpus")
	flags.IntVar(&f.limit, "limit", 0, "Process at most N articles (0 for all)")
	flags.BoolVar(&f.skipEmbeddings, "skip-embeddings", false, "Store articles without vectors")
	flags.StringVar(&f.mode, "mode", string(domain.ModeFull), "Fetch mode: full or delta")
	flags.StringVar(&f.since, "since", "", "Delta watermark (RFC 3339 or YYYY-MM-DD)")
	if withStop {
		flags.StringVar(&f.stopAfter, "stop-after", "", "Stop after this phase: connect, model or load")
	}
}

func (f *loadFlags) options() (domain.PipelineOptions, error) {
	mode, err := domain.ParseMode(f.mode)
	if err != nil {
		return domain.PipelineOptions{}, err
	}
	if f.limit < 0 {
		return domain.PipelineOptions{}, errors.Mark(errors.Newf("--limit must not be negative, got %d", f.limit), domain.ErrInvalidInput)
	}
	opts := domain.PipelineOptions{
		Mode:           mode,
		DryRun:         f.dry,
		SkipEmbeddings: f.skipEmbeddings,
		Limit:          f.limit,
	}
	if f.stopAfter != "" {
		if opts.StopAfter, err = domain.ParsePhase(f.stopAfter); err != nil {
			return domain.PipelineOptions{}, err
		}
	}
	if f.since != "" {
		since, err := parseSince(f.since)
		if err != nil {
			return domain.PipelineOptions{}, err
		}
		if mode != domain.ModeDelta {
			return domain.PipelineOptions{}, errors.WithHint(
				errors.Mark(errors.New("--since only applies to delta loads"), domain.ErrInvalidInput),
				"add --mode delta")
		}
		opts.DeltaSince = &since
	}
	return opts, nil
}

func parseSince(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Mark(errors.Newf("cannot parse --since %q", s), domain.ErrInvalidInput)
}

func runModel(cmd *cobra.Command, args []string) error {
	if modelOutput != "text" && modelOutput != "yaml" {
		return errors.Mark(errors.Newf("unknown output format %q (want text or yaml)", modelOutput), domain.ErrInvalidInput)
	}
	ctx := commandContext(cmd)

	if modelApply {
		if modelService == nil {
			return errNotConfigured("model")
		}
		result, err := modelService.ApplyMigration(ctx, args[0])
		if err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
		if err := printModel(cmd, result); err != nil {
			return err
		}
		cmd.Printf("%s %s\n", styles.Success.Render("✓"), result.Message)
		return nil
	}

	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}
	res, err := pipelineService.Model(ctx, args[0])
	if err != nil {
		return err
	}
	if res.Model != nil {
		if err := printModel(cmd, res.Model); err != nil {
			return err
		}
	}
	if res.Failed() {
		err := errors.Newf("%s: stopped at %s: %s", res.SourceID, res.StoppedAt, res.StoppedReason)
		if res.Model != nil && res.Model.Spec.MigrationSQL != "" {
			err = errors.WithHintf(err, "review the migration above, then run: lexsync model %s --apply", args[0])
		}
		return err
	}
	return nil
}

func printModel(cmd *cobra.Command, m *domain.ModelResult) error {
	if modelOutput == "yaml" {
		data, err := yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding model: %w", err)
		}
		cmd.Print(string(data))
		return nil
	}

	cmd.Printf("%s %s\n", styles.Title.Render("Table"), m.Spec.TableName)
	for _, c := range m.Spec.Columns {
		cmd.Printf("  %s %-20s %-14s %s\n", mark(c.Exists), c.Name, c.Type, styles.Muted.Render(c.Purpose))
	}
	cmd.Println(styles.Title.Render("Indexes"))
	for _, i := range m.Spec.Indexes {
		cmd.Printf("  %s %-32s %s\n", mark(i.Exists), i.Name, styles.Muted.Render(i.Type))
	}
	if len(m.Spec.Transforms) > 0 {
		cmd.Println(styles.Title.Render("Transforms"))
		for _, t := range m.Spec.Transforms {
			cmd.Printf("  %s <- %s  %s\n", t.TargetColumn, t.SourceField, styles.Muted.Render(t.Transform))
		}
	}
	if m.Spec.MigrationSQL != "" && !m.Ready {
		cmd.Println(styles.Title.Render("Proposed migration"))
		cmd.Println(m.Spec.MigrationSQL)
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return styles.Success.Render("✓")
	}
	return styles.Error.Render("✗")
}

func runUpdateAll(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}
	ctx := commandContext(cmd)

	if updateEvery > 0 {
		scheduler := services.NewScheduler(pipelineService, updateEvery)
		scheduler.OnRound = func(r services.UpdateRound) {
			for _, res := range r.Results {
				printResult(cmd, res)
			}
			cmd.Printf("Round finished at %s\n", r.EndedAt.Local().Format(time.RFC3339))
		}
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	results, err := pipelineService.UpdateAll(ctx)
	for _, res := range results {
		printResult(cmd, res)
	}
	if len(results) == 0 && err == nil {
		cmd.Println("No loaded sources to update.")
	}
	return err
}

// report prints a pipeline result and turns a stopped run into an error.
func report(cmd *cobra.Command, res *domain.PipelineResult, err error) error {
	if err != nil {
		return err
	}
	printResult(cmd, res)
	if res.Failed() {
		return errors.Newf("%s: stopped at %s: %s", res.SourceID, res.StoppedAt, res.StoppedReason)
	}
	return nil
}

func printResult(cmd *cobra.Command, res *domain.PipelineResult) {
	if res == nil {
		return
	}
	cmd.Println(styles.Title.Render(res.SourceID))

	if c := res.Connect; c != nil {
		status := styles.Success.Render("ok")
		if !c.OK {
			status = styles.Error.Render("failed")
		}
		detail := c.Message
		if c.OK {
			detail = fmt.Sprintf("~%d items, formats %s", c.Census.EstimatedItems, strings.Join(c.Census.AvailableFormats, ", "))
		}
		cmd.Printf("  %-8s %s  %s\n", domain.PhaseConnect, status, detail)
	}
	if m := res.Model; m != nil {
		status := styles.Success.Render("ready")
		if !m.Ready {
			status = styles.Error.Render("not ready")
		}
		cmd.Printf("  %-8s %s  %s\n", domain.PhaseModel, status, m.Spec.TableName)
	}
	if l := res.Load; l != nil {
		cmd.Printf("  %-8s fetched %d, valid %d (%d warnings, %d rejected), inserted %d, updated %d, skipped %d, errors %d\n",
			domain.PhaseLoad, l.Fetched, l.Validation.ValidCount, l.Validation.WarningCount, l.Validation.ErrorCount,
			l.Store.Inserted, l.Store.Updated, l.Store.Skipped, l.Store.Errors)
	}
	if res.Failed() {
		cmd.Printf("  %s %s\n", styles.Error.Render("stopped at "+string(res.StoppedAt)+":"), res.StoppedReason)
	}
	cmd.Println(styles.Muted.Render(fmt.Sprintf("  finished in %s", res.Duration.Round(time.Millisecond))))
}
