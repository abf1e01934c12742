// Package cost converts a failure scenario into a monetary estimate and an
// expected annual cost of risk.
package cost

import (
	"math"
	"sort"
	"strings"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Scenario describes one failure.
type Scenario struct {
	DowntimeHours float64 `json:"downtime_hours"`
	AffectedUsers int64   `json:"affected_users"`
	Industry      string  `json:"industry"`
	HasSLA        bool    `json:"has_sla"`
}

// Component names, in Breakdown order.
const (
	ComponentRevenue     = "revenue_loss"
	ComponentEngineering = "engineering_time"
	ComponentSupport     = "customer_support"
	ComponentSLA         = "sla_penalties"
	ComponentReputation  = "reputation_damage"
	ComponentRecovery    = "recovery"
)

// Component is one line of a Breakdown, already scaled by the industry
// multiplier.
type Component struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Breakdown is the cost of a single incident in USD.
type Breakdown struct {
	ResourceID         string      `json:"resource_id"`
	Scenario           Scenario    `json:"scenario"`
	Components         []Component `json:"components"`
	Subtotal           float64     `json:"subtotal"`
	IndustryMultiplier float64     `json:"industry_multiplier"`
	TotalCost          float64     `json:"total_cost"`
	Currency           string      `json:"currency"`
}

// Component returns the amount of the named component.
func (b *Breakdown) Component(name string) float64 {
	for _, c := range b.Components {
		if c.Name == name {
			return c.Amount
		}
	}
	return 0
}

// Estimator computes cost breakdowns. It holds no mutable state.
type Estimator struct {
	config Config
}

// NewEstimator creates an estimator.
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Config returns the active configuration.
func (e *Estimator) Config() Config {
	return e.config
}

// Industries lists the configured industry keys, sorted.
func (e *Estimator) Industries() []string {
	out := make([]string, 0, len(e.config.IndustryMultipliers))
	for k := range e.config.IndustryMultipliers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Estimate prices sc for resource r. An empty industry uses the default.
func (e *Estimator) Estimate(r graph.Resource, sc Scenario) (*Breakdown, error) {
	if sc.DowntimeHours < 0 || math.IsNaN(sc.DowntimeHours) || math.IsInf(sc.DowntimeHours, 0) {
		return nil, riskerr.InvalidParameter("downtime_hours", "must be a non-negative number, got %v", sc.DowntimeHours)
	}
	if sc.AffectedUsers < 0 {
		return nil, riskerr.InvalidParameter("affected_users", "must be >= 0, got %d", sc.AffectedUsers)
	}
	industry := strings.ToLower(strings.TrimSpace(sc.Industry))
	if industry == "" {
		industry = e.config.DefaultIndustry
	}
	multiplier, ok := e.config.IndustryMultipliers[industry]
	if !ok {
		return nil, riskerr.InvalidParameter("industry", "unknown industry %q (known: %s)",
			sc.Industry, strings.Join(e.Industries(), ", ")).
			WithDetail("known_industries", e.Industries())
	}
	sc.Industry = industry

	rates := e.config.Rates
	hours := sc.DowntimeHours
	users := float64(sc.AffectedUsers)

	engineers := rates.DefaultEngineers
	if n, ok := rates.EngineersByType[r.Type]; ok {
		engineers = n
	}
	recoveryBase := rates.DefaultRecoveryBase
	if v, ok := rates.RecoveryBaseByType[r.Type]; ok {
		recoveryBase = v
	}
	var sla float64
	if sc.HasSLA {
		sla = rates.SLACreditBase + hours*rates.SLAPenaltyPerHour
	}

	raw := []Component{
		{Name: ComponentRevenue, Amount: users * hours * rates.RevenuePerUserHour},
		{Name: ComponentEngineering, Amount: hours * float64(engineers) * rates.EngineerHourlyRate},
		{Name: ComponentSupport, Amount: users*rates.TicketRate*rates.CostPerTicket + hours*rates.SupportHourlyRate},
		{Name: ComponentSLA, Amount: sla},
		{Name: ComponentReputation, Amount: users * rates.ChurnCostPerUser * (1 - math.Exp(-hours/e.config.ReputationHours))},
		{Name: ComponentRecovery, Amount: recoveryBase + hours*rates.RecoveryHourlyRate},
	}

	b := &Breakdown{
		ResourceID:         r.ID,
		Scenario:           sc,
		IndustryMultiplier: multiplier,
		Currency:           "USD",
	}
	for _, c := range raw {
		b.Subtotal += c.Amount
		b.Components = append(b.Components, Component{Name: c.Name, Amount: cents(c.Amount * multiplier)})
	}
	b.Subtotal = cents(b.Subtotal)
	b.TotalCost = cents(b.Subtotal * multiplier)
	return b, nil
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
