package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamertofabian/maid-runner-sub001/internal/coherence"
	"github.com/mamertofabian/maid-runner-sub001/internal/pipeline"
	"github.com/mamertofabian/maid-runner-sub001/internal/report"
)

var flagCoherenceConfig string

var coherenceCmd = &cobra.Command{
	Use:   "coherence",
	Short: "Run architectural coherence checks over the knowledge graph",
	Long: `Runs the coherence validators against the full manifest set and the
extracted workspace: duplicate and conflicting declarations, module
boundary violations, naming conventions, dependency availability, pattern
consistency, and user-defined architectural constraints.`,
	RunE: runCoherence,
}

func init() {
	coherenceCmd.Flags().StringVar(&flagCoherenceConfig, "config", "", "coherence config YAML (default: <workspace>/.maid/coherence.yaml)")
}

func runCoherence(cmd *cobra.Command, args []string) error {
	cfgPath := flagCoherenceConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(workspace, ".maid", "coherence.yaml")
	}
	cfg, err := coherence.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	p := newPipeline(pipeline.Options{})
	defer p.Close()

	store, err := p.LoadStore()
	if err != nil {
		return err
	}
	g, extracted := p.BuildGraph(store)

	issues, err := coherence.NewValidator(cfg, store, g, extracted).Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("coherence checks complete", zap.Int("issues", len(issues)))

	rep := report.New()
	for _, issue := range issues {
		rep.Add(report.Issue{
			Type:       string(issue.Type),
			Severity:   report.Severity(issue.Severity),
			Message:    issue.Message,
			Location:   issue.Location,
			Suggestion: issue.Suggestion,
		})
	}
	if err := writeReport(rep); err != nil {
		return err
	}
	if !rep.Valid {
		return fmt.Errorf("coherence failed with %d errors", rep.Summary.Errors)
	}
	return nil
}
