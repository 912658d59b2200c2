package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamertofabian/maid-runner-sub001/internal/pipeline"
	"github.com/mamertofabian/maid-runner-sub001/internal/report"
	"github.com/mamertofabian/maid-runner-sub001/internal/validate"
)

var (
	flagMode     string
	flagPhase    string
	flagTestFile string
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate target files against their resolved manifest chains",
	Long: `Resolves the manifest supersession chain for each target file, merges the
active manifests into one expected artifact set, extracts the actual
artifacts from source, and reports every divergence.

With a file argument only that file is validated; without one, every file
any manifest targets. The comparison mode defaults to auto: files listed
under creatableFiles validate strictly (extras are errors), files under
editableFiles permissively (superset).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&flagMode, "mode", "auto", "comparison mode: auto, strict, or permissive")
	validateCmd.Flags().StringVar(&flagPhase, "phase", "implementation", "validation phase: implementation or behavioral")
	validateCmd.Flags().StringVar(&flagTestFile, "test-file", "", "test file supplying references for the behavioral phase")
}

func runValidate(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(flagMode)
	if err != nil {
		return err
	}
	phase, err := parsePhase(flagPhase)
	if err != nil {
		return err
	}

	p := newPipeline(pipeline.Options{Mode: mode, Phase: phase, TestFile: flagTestFile})
	defer p.Close()

	store, err := p.LoadStore()
	if err != nil {
		return err
	}

	var rep *report.Report
	if len(args) == 1 {
		rep = report.New()
		rep.Add(p.ValidateFile(store, args[0])...)
	} else {
		rep, err = p.Run(cmd.Context(), store)
		if err != nil {
			return err
		}
	}

	if err := writeReport(rep); err != nil {
		return err
	}
	if !rep.Valid {
		logger.Info("validation failed",
			zap.Int("errors", rep.Summary.Errors),
			zap.Int("warnings", rep.Summary.Warnings))
		return fmt.Errorf("validation failed with %d errors", rep.Summary.Errors)
	}
	return nil
}

func parseMode(s string) (validate.Mode, error) {
	switch s {
	case "auto", "":
		return "", nil
	case "strict":
		return validate.ModeStrict, nil
	case "permissive":
		return validate.ModePermissive, nil
	}
	return "", fmt.Errorf("unknown mode %q (want auto, strict, or permissive)", s)
}

func parsePhase(s string) (validate.Phase, error) {
	switch s {
	case "implementation", "":
		return validate.PhaseImplementation, nil
	case "behavioral":
		return validate.PhaseBehavioral, nil
	}
	return "", fmt.Errorf("unknown phase %q (want implementation or behavioral)", s)
}

func writeReport(rep *report.Report) error {
	if jsonOutput {
		return rep.WriteJSON(os.Stdout)
	}
	return rep.WriteText(os.Stdout)
}
