package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamertofabian/maid-runner-sub001/internal/graph"
	"github.com/mamertofabian/maid-runner-sub001/internal/kb"
	"github.com/mamertofabian/maid-runner-sub001/internal/pipeline"
	"github.com/mamertofabian/maid-runner-sub001/internal/query"
)

var (
	flagDepth     int
	flagEdgeKinds []string
	flagRulesFile string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the knowledge graph",
	Long: `Answers dependency, impact, and lineage questions by traversing the
knowledge graph built from manifests and extracted artifacts.`,
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents [artifact]",
	Short: "List nodes that depend on an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraversal(args[0], false)
	},
}

var dependenciesCmd = &cobra.Command{
	Use:   "dependencies [artifact]",
	Short: "List nodes an artifact depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraversal(args[0], true)
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact [artifact]",
	Short: "Report files and manifests affected by changing an artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpact,
}

var lineageCmd = &cobra.Command{
	Use:   "lineage [manifest-id]",
	Short: "Show the supersession chain through a manifest, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runLineage,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect cycles among the selected edge kinds",
	RunE:  runCycles,
}

var datalogCmd = &cobra.Command{
	Use:   "datalog [predicate]",
	Short: "Evaluate datalog rules over graph facts and print a predicate",
	Long: `Loads the graph as node/2 and edge/3 facts into the Mangle datalog
engine, optionally together with a user rules file, evaluates to fixpoint,
and prints every fact of the requested predicate.`,
	Args: cobra.ExactArgs(1),
	RunE: runDatalog,
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagDepth, "depth", query.DefaultDepth, "traversal depth bound")
	queryCmd.PersistentFlags().StringSliceVar(&flagEdgeKinds, "edges", nil, "edge kinds to traverse (default: all dependency kinds)")
	datalogCmd.Flags().StringVar(&flagRulesFile, "rules", "", "datalog rules file to load")

	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(dependenciesCmd)
	queryCmd.AddCommand(impactCmd)
	queryCmd.AddCommand(lineageCmd)
	queryCmd.AddCommand(cyclesCmd)
	queryCmd.AddCommand(datalogCmd)
}

// loadEngine builds the graph and wraps it in a query engine.
func loadEngine() (*query.Engine, *graph.Graph, error) {
	p := newPipeline(pipeline.Options{})
	defer p.Close()

	store, err := p.LoadStore()
	if err != nil {
		return nil, nil, err
	}
	g, _ := p.BuildGraph(store)
	return query.NewEngine(g), g, nil
}

func edgeKinds() []graph.EdgeKind {
	kinds := make([]graph.EdgeKind, 0, len(flagEdgeKinds))
	for _, k := range flagEdgeKinds {
		kinds = append(kinds, graph.EdgeKind(strings.ToUpper(k)))
	}
	return kinds
}

func runTraversal(name string, outgoing bool) error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	var nodes []*graph.Node
	if outgoing {
		nodes = e.Dependencies(name, flagDepth, edgeKinds()...)
	} else {
		nodes = e.Dependents(name, flagDepth, edgeKinds()...)
	}
	if jsonOutput {
		return printJSON(nodes)
	}
	for _, n := range nodes {
		fmt.Printf("%-10s %s\n", n.Kind, n.Label)
	}
	fmt.Printf("%d nodes\n", len(nodes))
	return nil
}

func runImpact(cmd *cobra.Command, args []string) error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	impact := e.AnalyzeImpact(args[0])
	if jsonOutput {
		return printJSON(impact)
	}
	fmt.Printf("Affected files (%d):\n", len(impact.AffectedFiles))
	for _, f := range impact.AffectedFiles {
		fmt.Printf("  %s\n", f)
	}
	fmt.Printf("Affected manifests (%d):\n", len(impact.AffectedManifests))
	for _, m := range impact.AffectedManifests {
		fmt.Printf("  %s\n", m)
	}
	return nil
}

func runLineage(cmd *cobra.Command, args []string) error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	lineage := e.Lineage(args[0])
	if len(lineage) == 0 {
		return fmt.Errorf("manifest %s not found", args[0])
	}
	if jsonOutput {
		return printJSON(lineage)
	}
	fmt.Println(strings.Join(lineage, " -> "))
	return nil
}

func runCycles(cmd *cobra.Command, args []string) error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	cycles := e.Cycles(edgeKinds()...)
	if jsonOutput {
		return printJSON(cycles)
	}
	if len(cycles) == 0 {
		fmt.Println("no cycles")
		return nil
	}
	for _, cycle := range cycles {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = string(id)
		}
		fmt.Println(strings.Join(parts, " -> "))
	}
	return fmt.Errorf("%d cycles found", len(cycles))
}

func runDatalog(cmd *cobra.Command, args []string) error {
	_, g, err := loadEngine()
	if err != nil {
		return err
	}

	engine, err := kb.NewEngine()
	if err != nil {
		return err
	}
	if flagRulesFile != "" {
		src, err := os.ReadFile(flagRulesFile)
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		if err := engine.LoadSource(string(src)); err != nil {
			return err
		}
	}
	if err := engine.Add(g.Facts()); err != nil {
		return err
	}

	facts, err := engine.Facts(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(facts)
	}
	for _, f := range facts {
		fmt.Println(f.String())
	}
	fmt.Printf("%d facts\n", len(facts))
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
