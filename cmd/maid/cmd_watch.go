package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamertofabian/maid-runner-sub001/internal/manifest"
	"github.com/mamertofabian/maid-runner-sub001/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Revalidate on every manifest change",
	Long: `Watches the manifest directory and reruns full validation after each
debounced burst of manifest file changes. Runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	p := newPipeline(pipeline.Options{})
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	revalidate := func() {
		store, err := p.LoadStore()
		if err != nil {
			logger.Error("manifest load failed", zap.Error(err))
			return
		}
		rep, err := p.Run(ctx, store)
		if err != nil {
			logger.Error("validation run failed", zap.Error(err))
			return
		}
		if err := writeReport(rep); err != nil {
			logger.Error("write report", zap.Error(err))
		}
	}

	// Validate once up front so the first report does not wait for an edit.
	revalidate()
	fmt.Printf("watching %s\n", manifestDir)

	err := manifest.NewWatcher(manifestDir).Run(ctx, revalidate)
	if ctx.Err() != nil {
		return nil // interrupted
	}
	return err
}
