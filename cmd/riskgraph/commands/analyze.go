package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/moolen/riskgraph/internal/api/parsing"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/trend"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	outputFormat string

	comprehensive  bool
	simulate       bool
	scopeType      string
	scopeProvider  string
	scopeRegion    string
	scopeLimit     int
	direction      string
	maxDepth       int
	deploymentTime string
	horizonDays    int
	downtimeHours  float64
	affectedUsers  int64
	industry       string
	hasSLA         bool
	annual         bool
	inputFile      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis against a snapshot file or FalkorDB",
	Long: `Run a single analysis and print the result.

The graph comes from --snapshot, or from the graph section of --config.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != outputTable && outputFormat != outputJSON {
			return fmt.Errorf("invalid output format %q (must be table or json)", outputFormat)
		}
		return nil
	},
}

func init() {
	analyzeCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputTable, "Output format: table or json")

	riskCmd := &cobra.Command{
		Use:   "risk <resource-id>",
		Short: "Score a resource's failure risk",
		Args:  cobra.ExactArgs(1),
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			if comprehensive {
				return eng.ComprehensiveRisk(ctx, args[0])
			}
			return eng.AssessRisk(ctx, args[0])
		}),
	}
	riskCmd.Flags().BoolVar(&comprehensive, "comprehensive", false, "Blend in blast radius, SPOF status and cycles")

	blastCmd := &cobra.Command{
		Use:   "blast-radius <resource-id>",
		Short: "List what fails when a resource fails",
		Args:  cobra.ExactArgs(1),
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			if simulate {
				return eng.SimulateFailure(ctx, args[0])
			}
			return eng.BlastRadius(ctx, args[0])
		}),
	}
	blastCmd.Flags().BoolVar(&simulate, "simulate", false, "Include recovery steps and mitigations")

	spofsCmd := &cobra.Command{
		Use:   "spofs",
		Short: "Find single points of failure",
		Args:  cobra.NoArgs,
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			return eng.ListSPOFs(ctx, scopeFilter())
		}),
	}
	addScopeFlags(spofsCmd)
	spofsCmd.Flags().IntVar(&scopeLimit, "limit", 0, "Max entries to return (0 = all)")

	cyclesCmd := &cobra.Command{
		Use:   "cycles [resource-id]",
		Short: "Find circular dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return eng.ListCycles(ctx, id, scopeFilter())
		}),
	}
	addScopeFlags(cyclesCmd)

	depsCmd := &cobra.Command{
		Use:   "dependencies <resource-id>",
		Short: "Resolve upstream and downstream dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			dir, err := dependency.ParseDirection(direction)
			if err != nil {
				return nil, err
			}
			return eng.ResolveDependencies(ctx, args[0], dir, maxDepth)
		}),
	}
	depsCmd.Flags().StringVar(&direction, "direction", "both", "upstream, downstream or both")
	depsCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Max hops (0 = configured default, capped at 10)")

	windowsCmd := &cobra.Command{
		Use:   "windows <resource-id>",
		Short: "Time-adjusted risk and the safest upcoming change windows",
		Args:  cobra.ExactArgs(1),
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			at, err := parsing.ParseOptionalTime(deploymentTime, "at", time.Now())
			if err != nil {
				return nil, err
			}
			return eng.TimeAwareRisk(ctx, args[0], at, horizonDays)
		}),
	}
	windowsCmd.Flags().StringVar(&deploymentTime, "at", "", "Planned deployment time: RFC3339, unix seconds, now+2h or 'tomorrow 2am' (default now)")
	windowsCmd.Flags().IntVar(&horizonDays, "horizon-days", 0, "Days ahead to search for windows (0 = default)")

	costCmd := &cobra.Command{
		Use:   "cost <resource-id>",
		Short: "Estimate the cost of a resource failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := engine.CostRequest{Industry: industry}
			if cmd.Flags().Changed("downtime-hours") {
				req.DowntimeHours = &downtimeHours
			}
			if cmd.Flags().Changed("affected-users") {
				req.AffectedUsers = &affectedUsers
			}
			if cmd.Flags().Changed("has-sla") {
				req.HasSLA = &hasSLA
			}
			return analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
				if annual {
					return eng.AnnualRiskCost(ctx, args[0], req)
				}
				return eng.CostImpact(ctx, args[0], req)
			})(cmd, args)
		},
	}
	costCmd.Flags().Float64Var(&downtimeHours, "downtime-hours", 0, "Outage duration (default from the blast radius estimate)")
	costCmd.Flags().Int64Var(&affectedUsers, "affected-users", 0, "Users affected (default from estimated_users)")
	costCmd.Flags().StringVar(&industry, "industry", "", "Industry multiplier, e.g. finance, healthcare (default general)")
	costCmd.Flags().BoolVar(&hasSLA, "has-sla", false, "Include SLA penalties (default from the has_sla attribute)")
	costCmd.Flags().BoolVar(&annual, "annual", false, "Show the expected annual cost weighted by risk")

	trendCmd := &cobra.Command{
		Use:   "trend",
		Short: "Analyze a risk score history",
		Long: `Analyze a risk score history read from --file (YAML or JSON):

  resource_id: db-1
  snapshots:
    - {timestamp: 2026-10-01T00:00:00Z, score: 20}
    - {timestamp: 2026-10-02T00:00:00Z, score: 24}`,
		Args: cobra.NoArgs,
		RunE: runTrend,
	}
	trendCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Snapshot history file")
	trendCmd.Flags().IntVar(&horizonDays, "horizon-days", 0, "Forecast horizon (0 = default)")
	_ = trendCmd.MarkFlagRequired("file")

	rootCauseCmd := &cobra.Command{
		Use:   "root-cause",
		Short: "Rank likely root causes of an incident",
		Long: `Rank likely root causes from an incident file (YAML or JSON) with
resource_id, window {start, end}, deployments, anomalies and
dependency_failures.`,
		Args: cobra.NoArgs,
		RunE: analysisRunner(func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error) {
			var in rootcause.Input
			if err := decodeFile(inputFile, &in); err != nil {
				return nil, err
			}
			return eng.AnalyzeRootCause(ctx, in)
		}),
	}
	rootCauseCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Incident file")
	_ = rootCauseCmd.MarkFlagRequired("file")

	analyzeCmd.AddCommand(riskCmd, blastCmd, spofsCmd, cyclesCmd, depsCmd, windowsCmd, costCmd, trendCmd, rootCauseCmd)
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scopeType, "type", "", "Only resources of this type")
	cmd.Flags().StringVar(&scopeProvider, "provider", "", "Only resources of this provider")
	cmd.Flags().StringVar(&scopeRegion, "region", "", "Only resources in this region")
}

func scopeFilter() graph.ResourceFilter {
	return graph.ResourceFilter{
		Type:     graph.ResourceType(scopeType),
		Provider: scopeProvider,
		Region:   scopeRegion,
		Limit:    scopeLimit,
	}
}

type analysisFunc func(ctx context.Context, eng *engine.Engine, args []string) (interface{}, error)

// analysisRunner loads config and graph, builds an engine, runs fn and
// prints its result.
func analysisRunner(fn analysisFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		store, closeStore, err := openStoreConnected(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		eng, err := engine.New(store, cfg.EngineSettings())
		if err != nil {
			return err
		}
		result, err := fn(ctx, eng, args)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result)
	}
}

func runTrend(cmd *cobra.Command, args []string) error {
	var history struct {
		ResourceID string           `json:"resource_id"`
		Snapshots  []trend.Snapshot `json:"snapshots"`
	}
	if err := decodeFile(inputFile, &history); err != nil {
		return err
	}
	for i := range history.Snapshots {
		if history.Snapshots[i].ResourceID == "" {
			history.Snapshots[i].ResourceID = history.ResourceID
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer := trend.NewAnalyzer(cfg.Trend)
	result, err := analyzer.Analyze(history.Snapshots, trend.Options{HorizonDays: horizonDays})
	if err != nil {
		return err
	}
	if result.ResourceID == "" {
		result.ResourceID = history.ResourceID
	}
	return printResult(cmd.OutOrStdout(), result)
}

// decodeFile reads YAML or JSON into dst using dst's json tags.
func decodeFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse %q: %w", path, err)
		}
		return nil
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %q: %w", path, err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to convert %q: %w", path, err)
	}
	if err := json.Unmarshal(asJSON, dst); err != nil {
		return fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return nil
}

func printResult(w io.Writer, result interface{}) error {
	if outputFormat == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return renderTable(w, result)
}
