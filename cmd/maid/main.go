// maid is the manifest-driven validation engine: it resolves manifest
// supersession chains, extracts artifacts from source, validates expected
// against actual, and answers questions over the resulting knowledge graph.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
	"github.com/mamertofabian/maid-runner-sub001/internal/pipeline"
)

var (
	// Global flags
	verbose     bool
	workspace   string
	manifestDir string
	useCache    bool
	jsonOutput  bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "maid",
	Short: "maid - Manifest-driven Artifact Integrity Daemon",
	Long: `maid validates source files against declarative task manifests.

Manifests declare what artifacts (classes, functions, attributes) each file
must contain. maid resolves manifest supersession chains into a single
expected set per file, extracts the actual artifacts from Python and
TypeScript sources, and reports every divergence. A knowledge graph built
from the same inputs answers dependency, impact, and lineage queries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve workspace: %w", err)
			}
		}
		if manifestDir == "" {
			manifestDir = filepath.Join(workspace, "manifests")
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

// newPipeline builds a pipeline from the global flags plus command options.
func newPipeline(opts pipeline.Options) *pipeline.Pipeline {
	opts.Workspace = workspace
	opts.ManifestDir = manifestDir
	if useCache {
		opts.CachePath = filepath.Join(workspace, ".maid", "cache.db")
	}
	return pipeline.New(opts)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "project root (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&manifestDir, "manifests", "m", "", "manifest directory (default: <workspace>/manifests)")
	rootCmd.PersistentFlags().BoolVar(&useCache, "cache", false, "cache resolved chains in .maid/cache.db")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of text")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(coherenceCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
