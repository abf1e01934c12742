package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/cost"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/misconfig"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/timing"
	"github.com/moolen/riskgraph/internal/trend"
)

// renderTable prints result as pterm tables. Unknown types fall back to JSON.
func renderTable(w io.Writer, result interface{}) error {
	switch r := result.(type) {
	case *risk.Assessment:
		return renderAssessment(w, r)
	case *engine.RiskReport:
		return renderRiskReport(w, r)
	case *blastradius.Result:
		return renderBlastRadius(w, r)
	case *blastradius.Simulation:
		return renderSimulation(w, r)
	case *spof.Report:
		return renderSPOFs(w, r)
	case *dependency.CycleReport:
		return renderCycles(w, r.Cycles, r.Complete)
	case *dependency.Resolution:
		return renderResolution(w, r)
	case *engine.TimeAwareRisk:
		return renderTimeAwareRisk(w, r)
	case *cost.Breakdown:
		return renderBreakdown(w, r)
	case *cost.AnnualRisk:
		return renderAnnualRisk(w, r)
	case *trend.Result:
		return renderTrend(w, r)
	case *rootcause.Report:
		return renderRootCause(w, r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func heading(w io.Writer, format string, args ...interface{}) {
	pterm.Fprintln(w, pterm.Bold.Sprintf(format, args...))
}

func table(w io.Writer, data [][]string) error {
	if len(data) <= 1 {
		pterm.Fprintln(w, pterm.FgGray.Sprint("  (none)"))
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func levelStyle(level string) string {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return pterm.FgRed.Sprint("CRITICAL")
	case "HIGH":
		return pterm.FgRed.Sprint("HIGH")
	case "MEDIUM":
		return pterm.FgYellow.Sprint("MEDIUM")
	default:
		return pterm.FgBlue.Sprint(strings.ToUpper(level))
	}
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func incompleteNote(w io.Writer, complete bool) {
	if !complete {
		pterm.Fprintln(w, pterm.FgYellow.Sprint("Result is partial: the analysis stopped before completing."))
	}
}

func renderAssessment(w io.Writer, a *risk.Assessment) error {
	heading(w, "Risk for %s (%s): %s %s", a.ResourceID, a.ResourceType, f2(a.Score), levelStyle(string(a.Level)))

	data := [][]string{{"Factor", "Weight", "Value", "Contribution", "Source"}}
	for _, f := range a.Factors {
		data = append(data, []string{f.Name, f2(f.Weight), f2(f.Value), f2(f.Contribution), f.Source})
	}
	if err := table(w, data); err != nil {
		return err
	}
	if err := renderFindings(w, a.Misconfigurations); err != nil {
		return err
	}
	renderList(w, "Recommendations", a.Recommendations)
	if len(a.MissingInputs) > 0 {
		pterm.Fprintln(w, pterm.FgGray.Sprintf("Missing inputs scored as zero: %s", strings.Join(a.MissingInputs, ", ")))
	}
	return nil
}

func renderFindings(w io.Writer, findings []misconfig.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	heading(w, "Misconfigurations")
	data := [][]string{{"Severity", "Type", "Points", "Recommendation"}}
	for _, f := range findings {
		data = append(data, []string{levelStyle(string(f.Severity)), string(f.Type), f2(f.PointImpact), f.Recommendation})
	}
	return table(w, data)
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	heading(w, "%s", title)
	for _, item := range items {
		pterm.Fprintln(w, "  - "+item)
	}
}

func renderRiskReport(w io.Writer, r *engine.RiskReport) error {
	if r.ComprehensiveAssessment == nil {
		return fmt.Errorf("risk report has no assessment")
	}
	heading(w, "Combined risk: %s %s", f2(r.CombinedScore), levelStyle(string(r.Level)))
	data := [][]string{
		{"Component", "Score", "Weight"},
		{"infrastructure", f2(r.InfrastructureScore), f2(r.Blend.Infrastructure)},
		{"vulnerability", f2(r.VulnerabilityScore), f2(r.Blend.Vulnerability)},
		{"degradation", f2(r.DegradationScore), f2(r.Blend.Degradation)},
	}
	if err := table(w, data); err != nil {
		return err
	}
	if r.SPOF != nil && r.SPOF.IsSPOF {
		pterm.Fprintln(w, pterm.FgRed.Sprintf("Single point of failure for %d dependents", r.SPOF.DependentCount))
	}
	if len(r.Cycles) > 0 {
		if err := renderCycles(w, r.Cycles, true); err != nil {
			return err
		}
	}
	if r.Assessment != nil {
		return renderAssessment(w, r.Assessment)
	}
	return nil
}

func renderBlastRadius(w io.Writer, r *blastradius.Result) error {
	heading(w, "Blast radius of %s: %d affected, ~%s downtime, %s user impact",
		r.ResourceID, r.TotalAffected, time.Duration(r.EstimatedDowntimeSeconds)*time.Second, r.UserImpact)
	data := [][]string{{"Resource", "Impact"}}
	for _, id := range r.DirectlyAffected {
		data = append(data, []string{id, "direct"})
	}
	for _, id := range r.IndirectlyAffected {
		data = append(data, []string{id, "indirect"})
	}
	if err := table(w, data); err != nil {
		return err
	}
	incompleteNote(w, r.Complete)
	return nil
}

func renderSimulation(w io.Writer, s *blastradius.Simulation) error {
	if s.BlastRadius != nil {
		if err := renderBlastRadius(w, s.BlastRadius); err != nil {
			return err
		}
	}
	if err := renderFindings(w, s.Misconfigurations); err != nil {
		return err
	}
	renderList(w, "Recovery steps", s.RecoverySteps)
	renderList(w, "Mitigations", s.Mitigations)
	return nil
}

func renderSPOFs(w io.Writer, r *spof.Report) error {
	heading(w, "Single points of failure (%d of %d resources scanned)", len(r.SPOFs), r.ResourcesScanned)
	data := [][]string{{"Resource", "Type", "Dependents", "Blast radius"}}
	for _, e := range r.SPOFs {
		total := "-"
		if e.BlastRadius != nil {
			total = strconv.Itoa(e.BlastRadius.TotalAffected)
		}
		data = append(data, []string{e.Resource.ID, string(e.Resource.Type), strconv.Itoa(e.DependentCount), total})
	}
	if err := table(w, data); err != nil {
		return err
	}
	incompleteNote(w, r.Complete)
	return nil
}

func renderCycles(w io.Writer, cycles []dependency.Cycle, complete bool) error {
	heading(w, "Circular dependencies (%d)", len(cycles))
	data := [][]string{{"Length", "Path"}}
	for _, c := range cycles {
		if len(c.Path) == 0 {
			continue
		}
		path := append(append([]string{}, c.Path...), c.Path[0])
		data = append(data, []string{strconv.Itoa(c.Length), strings.Join(path, " -> ")})
	}
	if err := table(w, data); err != nil {
		return err
	}
	incompleteNote(w, complete)
	return nil
}

func renderResolution(w io.Writer, r *dependency.Resolution) error {
	heading(w, "Dependencies of %s (%s, depth %d)", r.ResourceID, r.Direction, r.MaxDepth)
	if r.Clamped {
		pterm.Fprintln(w, pterm.FgYellow.Sprintf("Requested depth %d was clamped to %d", r.RequestedDepth, r.MaxDepth))
	}
	data := [][]string{{"Resource", "Type", "Direction", "Hops", "Via", "Edge"}}
	for _, res := range r.Resources {
		data = append(data, []string{
			res.Resource.ID,
			string(res.Resource.Type),
			string(res.Direction),
			strconv.Itoa(res.PathLength),
			res.Via,
			string(res.Edge.Type),
		})
	}
	if err := table(w, data); err != nil {
		return err
	}
	incompleteNote(w, r.Complete)
	return nil
}

func renderTimeAwareRisk(w io.Writer, r *engine.TimeAwareRisk) error {
	adj := r.Adjustment
	heading(w, "%s at %s (%s): %s x%s = %s",
		r.ResourceID, adj.EvaluatedAt.Format(time.RFC1123), adj.Period, f2(adj.BaseScore), f2(adj.Multiplier), f2(adj.AdjustedScore))
	if adj.Recommendation != "" {
		pterm.Fprintln(w, "  "+adj.Recommendation)
	}
	for _, warning := range r.Warnings {
		pterm.Fprintln(w, pterm.FgYellow.Sprint(warning))
	}
	return renderWindows(w, r.OptimalWindows)
}

func renderWindows(w io.Writer, windows []timing.Window) error {
	heading(w, "Optimal windows")
	data := [][]string{{"Start", "End", "Period", "Multiplier"}}
	for _, win := range windows {
		data = append(data, []string{
			win.Start.Format("Mon 2006-01-02 15:04 MST"),
			win.End.Format("15:04"),
			string(win.Period),
			f2(win.Multiplier),
		})
	}
	return table(w, data)
}

func renderBreakdown(w io.Writer, b *cost.Breakdown) error {
	heading(w, "Cost of a %s failure: %s %s (x%s industry multiplier)", b.ResourceID, f2(b.TotalCost), b.Currency, f2(b.IndustryMultiplier))
	data := [][]string{{"Component", "Amount"}}
	for _, c := range b.Components {
		data = append(data, []string{c.Name, f2(c.Amount)})
	}
	data = append(data, []string{pterm.Bold.Sprint("total"), pterm.Bold.Sprint(f2(b.TotalCost))})
	return table(w, data)
}

func renderAnnualRisk(w io.Writer, a *cost.AnnualRisk) error {
	heading(w, "Expected annual cost for %s: %s", a.ResourceID, f2(a.ExpectedAnnualCost))
	data := [][]string{
		{"Metric", "Value"},
		{"risk score", f2(a.RiskScore)},
		{"expected incidents / year", f2(a.ExpectedIncidents)},
		{"P(at least one incident)", f2(a.IncidentProbability)},
	}
	if err := table(w, data); err != nil {
		return err
	}
	if a.SingleIncident != nil {
		if err := renderBreakdown(w, a.SingleIncident); err != nil {
			return err
		}
	}
	renderList(w, "Recommendations", a.ROIRecommendations)
	return nil
}

func renderTrend(w io.Writer, r *trend.Result) error {
	heading(w, "Trend for %s: %s (%s severity, %s%% change over %d samples)",
		r.ResourceID, r.Direction, r.Severity, f2(r.ChangePercentage), r.SampleSize)
	data := [][]string{
		{"Metric", "Value"},
		{"first half mean", f2(r.FirstHalfMean)},
		{"second half mean", f2(r.SecondHalfMean)},
		{"volatility", f2(r.Volatility)},
		{"data quality", string(r.DataQuality)},
	}
	if r.Forecast != nil {
		data = append(data,
			[]string{fmt.Sprintf("forecast (+%dd)", r.Forecast.HorizonDays), f2(r.Forecast.Score)},
			[]string{"forecast confidence", string(r.Forecast.Confidence)},
		)
	}
	if err := table(w, data); err != nil {
		return err
	}
	if len(r.Anomalies) > 0 {
		heading(w, "Anomalies (%s confidence)", r.AnomalyConfidence)
		anomalies := [][]string{{"Timestamp", "Value", "z", "Severity"}}
		for _, a := range r.Anomalies {
			anomalies = append(anomalies, []string{a.Timestamp.Format(time.RFC3339), f2(a.Value), f2(a.ZScore), string(a.Severity)})
		}
		if err := table(w, anomalies); err != nil {
			return err
		}
	}
	renderList(w, "Warnings", r.Warnings)
	return nil
}

func renderRootCause(w io.Writer, r *rootcause.Report) error {
	heading(w, "Root cause candidates for %s (%s data quality)", r.ResourceID, r.DataQuality)
	data := [][]string{{"#", "Type", "Resource", "Confidence", "Hops"}}
	for i, c := range r.Candidates {
		resource, hops := c.ResourceID, strconv.Itoa(c.HopDistance)
		if resource == "" {
			resource, hops = "-", "-"
		}
		data = append(data, []string{strconv.Itoa(i + 1), string(c.Type), resource, f2(c.Confidence), hops})
	}
	if err := table(w, data); err != nil {
		return err
	}
	if len(r.Candidates) > 0 {
		renderList(w, "Recommended actions", r.Candidates[0].RecommendedActions)
	}
	renderList(w, "Warnings", r.Warnings)
	incompleteNote(w, r.Complete)
	return nil
}
