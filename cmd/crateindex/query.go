package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crateindex/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read-only inspection operations over a freshly analyzed workspace",
}

var (
	queryLimit    int
	querySeverity string
)

func init() {
	queryCmd.AddCommand(
		overviewCmd,
		functionsCmd,
		unreferencedCmd,
		testOnlyCmd,
		withoutTestsCmd,
		functionCmd,
		typeCmd,
		actorCmd,
		distributedActorsCmd,
		spawnDiagramCmd,
		messageDiagramCmd,
		layerHealthCmd,
		violationsCmd,
		debugGraphCmd,
		searchCmd,
	)

	functionsCmd.Flags().IntVar(&queryLimit, "limit", 0, "cap the number of rows (0 = unlimited)")
	searchCmd.Flags().IntVar(&queryLimit, "limit", 0, "cap the number of rows (0 = unlimited)")
	violationsCmd.Flags().StringVar(&querySeverity, "severity", "", "filter by severity (warning|error)")
	violationsCmd.Flags().IntVar(&queryLimit, "limit", 0, "cap the number of rows (0 = unlimited)")
}

// withStore loads config, runs the pipeline, and hands the resulting
// Store to fn. Every query subcommand is a thin wrapper around this.
func withStore(cmd *cobra.Command, fn func(*query.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := runPipeline(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return fn(storeFrom(result))
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "get_crate_overview: per-crate function/type/actor counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, row := range s.GetCrateOverview() {
				fmt.Printf("%-20s layer=%-12s external=%-5v functions=%-4d types=%-4d actors=%d\n",
					row.Name, row.Layer, row.IsExternal, row.FunctionCount, row.TypeCount, row.ActorCount)
			}
			return nil
		})
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions [search]",
	Short: "list_functions: substring search over qualified names",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var search string
		if len(args) == 1 {
			search = args[0]
		}
		return withStore(cmd, func(s *query.Store) error {
			printFunctionSummaries(s.ListFunctions(search, queryLimit))
			return nil
		})
	},
}

var unreferencedCmd = &cobra.Command{
	Use:   "unreferenced",
	Short: "find_unreferenced_functions: never-called, non-test functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			printFunctionSummaries(s.FindUnreferencedFunctions(nil))
			return nil
		})
	},
}

var testOnlyCmd = &cobra.Command{
	Use:   "test-only",
	Short: "find_test_only_functions: functions only reachable from tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			printFunctionSummaries(s.FindTestOnlyFunctions())
			return nil
		})
	},
}

var withoutTestsCmd = &cobra.Command{
	Use:   "without-tests",
	Short: "find_functions_without_tests: public functions no test references",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			printFunctionSummaries(s.FindFunctionsWithoutTests())
			return nil
		})
	},
}

var functionCmd = &cobra.Command{
	Use:   "function <id>",
	Short: "get_function_details: callers/callees of one function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			d, ok := s.GetFunctionDetails(args[0])
			if !ok {
				return fmt.Errorf("no function with id %q", args[0])
			}
			fmt.Printf("%s (%s:%d)\ncallers: %v\ncallees: %v\n", d.QualifiedName, d.File, d.LineStart, d.Callers, d.Callees)
			return nil
		})
	},
}

var typeCmd = &cobra.Command{
	Use:   "type <id>",
	Short: "get_type_details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			d, ok := s.GetTypeDetails(args[0])
			if !ok {
				return fmt.Errorf("no type with id %q", args[0])
			}
			fmt.Printf("%s kind=%s crate=%s actor=%v\n", d.QualifiedName, d.Kind, d.Crate, d.IsActor)
			return nil
		})
	},
}

var actorCmd = &cobra.Command{
	Use:   "actor <name>",
	Short: "get_actor_details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			a, ok := s.GetActorDetails(args[0])
			if !ok {
				return fmt.Errorf("no actor named %q", args[0])
			}
			fmt.Printf("%s kind=%s distributed=%v\n", a.ID, a.Kind, a.IsDistributed)
			return nil
		})
	},
}

var distributedActorsCmd = &cobra.Command{
	Use:   "distributed-actors",
	Short: "get_distributed_actors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, a := range s.GetDistributedActors() {
				fmt.Printf("%s kind=%s\n", a.ID, a.Kind)
			}
			return nil
		})
	},
}

var spawnDiagramCmd = &cobra.Command{
	Use:   "spawn-diagram",
	Short: "generate_actor_spawn_diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, e := range s.GenerateActorSpawnDiagram() {
				fmt.Printf("%s --[%s/%s]--> %s\n", e.Parent, e.Method, e.Pattern, e.Child)
			}
			return nil
		})
	},
}

var messageDiagramCmd = &cobra.Command{
	Use:   "message-diagram",
	Short: "generate_actor_message_diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, e := range s.GenerateActorMessageDiagram() {
				fmt.Printf("%s --[%s:%s]--> %s\n", e.Sender, e.Method, e.Message, e.Target)
			}
			return nil
		})
	},
}

var layerHealthCmd = &cobra.Command{
	Use:   "layer-health",
	Short: "get_layer_health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, h := range s.GetLayerHealth() {
				fmt.Printf("%-15s crates=%-4d violations=%d\n", h.Layer, h.CrateCount, h.ViolationCount)
			}
			return nil
		})
	},
}

var violationsCmd = &cobra.Command{
	Use:   "violations",
	Short: "check_architecture_violations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			for _, v := range s.CheckArchitectureViolations(querySeverity, queryLimit) {
				fmt.Printf("[%s] %s -> %s (%s:%d) %s\n", v.Severity, v.FromCrate, v.ToCrate, v.File, v.Line, v.Kind)
			}
			return nil
		})
	},
}

var debugGraphCmd = &cobra.Command{
	Use:   "debug-graph",
	Short: "debug_graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			d := s.DebugGraph()
			fmt.Println("vertices:")
			for label, n := range d.VertexCountByLabel {
				fmt.Printf("  %-12s %d\n", label, n)
			}
			fmt.Println("edges:")
			for typ, n := range d.EdgeCountByType {
				fmt.Printf("  %-12s %d\n", typ, n)
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "semantic_search (text-only fallback)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *query.Store) error {
			printFunctionSummaries(s.SemanticSearch(args[0], queryLimit))
			return nil
		})
	},
}

func printFunctionSummaries(rows []query.FunctionSummary) {
	for _, r := range rows {
		fmt.Printf("%-40s %s:%d\n", r.QualifiedName, r.File, r.Line)
	}
}
