package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conduit/bootstrap"
	"conduit/generator"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		integration string
		dryRun      bool
		outDir      string
		delay       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Publish action and flow templates for every data collection",
		Long: `Walk the data collections of every integration and publish a list and a
create action plus one flow per collection event. Each template is written as
YAML under <out>/actions/<integration>/ and <out>/flows/<integration>/.
Existing templates are patched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, generateTimeout)
			defer cancel()

			cfg, client, sugar, cleanup, err := initPlatform()
			if err != nil {
				return err
			}
			defer cleanup()

			if outDir == "" {
				outDir = cfg.Generator.OutputDir
			}
			if !cmd.Flags().Changed("delay") {
				delay = cfg.Generator.Delay
			}
			absOut, err := bootstrap.EnsureOutputDirectory(outDir, sugar)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet && !outputJSON {
				if dryRun {
					warningColor.Fprintln(out, "Dry run: templates are written but not published")
				}
				infoColor.Fprintf(out, "Writing templates to %s\n", absOut)
			}

			gen := generator.New(client, generator.Options{
				OutputDir:   absOut,
				Integration: integration,
				Delay:       delay,
				DryRun:      dryRun,
			}, sugar)

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Listing integrations..."
				s.Start()
				gen.OnProgress(func(integrationKey, collectionKey string) {
					s.Lock()
					s.Suffix = fmt.Sprintf(" %s / %s", integrationKey, collectionKey)
					s.Unlock()
				})
			}

			summary, err := gen.Run(ctx)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("failed to generate templates: %w", err)
			}

			if outputJSON {
				if err := outputAsJSON(out, summary); err != nil {
					return err
				}
			} else {
				renderSummary(out, summary, dryRun)
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d templates failed to publish", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&integration, "integration", "", "Only generate templates for this integration key")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write templates without publishing them")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default from generator.output_dir)")
	cmd.Flags().DurationVar(&delay, "delay", generator.DefaultDelay, "Pause before each collection fetch")

	return cmd
}
