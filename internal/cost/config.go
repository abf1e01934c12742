package cost

import (
	"fmt"

	"github.com/moolen/riskgraph/internal/graph"
)

// Rates are the per-unit inputs of the six cost components, in USD.
type Rates struct {
	RevenuePerUserHour float64 `yaml:"revenue_per_user_hour" validate:"gte=0"`

	EngineerHourlyRate float64                    `yaml:"engineer_hourly_rate" validate:"gte=0"`
	EngineersByType    map[graph.ResourceType]int `yaml:"engineers_by_type"`
	DefaultEngineers   int                        `yaml:"default_engineers" validate:"gte=0"`

	TicketRate          float64 `yaml:"ticket_rate" validate:"gte=0,lte=1"`
	CostPerTicket       float64 `yaml:"cost_per_ticket" validate:"gte=0"`
	SupportHourlyRate   float64 `yaml:"support_hourly_rate" validate:"gte=0"`
	SLACreditBase       float64 `yaml:"sla_credit_base" validate:"gte=0"`
	SLAPenaltyPerHour   float64 `yaml:"sla_penalty_per_hour" validate:"gte=0"`
	ChurnCostPerUser    float64 `yaml:"churn_cost_per_user" validate:"gte=0"`
	RecoveryHourlyRate  float64 `yaml:"recovery_hourly_rate" validate:"gte=0"`
	DefaultRecoveryBase float64 `yaml:"default_recovery_base" validate:"gte=0"`

	RecoveryBaseByType map[graph.ResourceType]float64 `yaml:"recovery_base_by_type"`
}

// Config holds the rate table, industry multipliers and the annualisation
// inputs.
type Config struct {
	Rates               Rates              `yaml:"rates"`
	IndustryMultipliers map[string]float64 `yaml:"industry_multipliers"`
	DefaultIndustry     string             `yaml:"default_industry"`
	// MaxAnnualIncidents is the expected incident count per year of a
	// resource scoring 100.
	MaxAnnualIncidents float64 `yaml:"max_annual_incidents" validate:"gt=0"`
	// ReputationHours is the time constant, in hours, with which reputation
	// damage saturates as downtime grows.
	ReputationHours float64 `yaml:"reputation_hours" validate:"gt=0"`
}

// DefaultConfig returns conservative rates for a mid-sized online business.
func DefaultConfig() Config {
	return Config{
		Rates: Rates{
			RevenuePerUserHour: 0.05,
			EngineerHourlyRate: 150,
			EngineersByType: map[graph.ResourceType]int{
				graph.TypeDatabase:     4,
				graph.TypeNetwork:      3,
				graph.TypeIdentity:     3,
				graph.TypeCompute:      2,
				graph.TypeStorage:      2,
				graph.TypeLoadBalancer: 2,
				graph.TypeQueue:        2,
				graph.TypeCache:        2,
				graph.TypeContainer:    2,
				graph.TypeServerless:   1,
			},
			DefaultEngineers:    2,
			TicketRate:          0.02,
			CostPerTicket:       15,
			SupportHourlyRate:   75,
			SLACreditBase:       5000,
			SLAPenaltyPerHour:   2500,
			ChurnCostPerUser:    0.5,
			RecoveryHourlyRate:  200,
			DefaultRecoveryBase: 2000,
			RecoveryBaseByType: map[graph.ResourceType]float64{
				graph.TypeDatabase: 5000,
				graph.TypeStorage:  3000,
				graph.TypeNetwork:  2500,
				graph.TypeIdentity: 2500,
				graph.TypeCompute:  1000,
				graph.TypeCache:    500,
			},
		},
		IndustryMultipliers: map[string]float64{
			"general":    1.0,
			"ecommerce":  1.5,
			"saas":       1.2,
			"media":      1.0,
			"gaming":     1.0,
			"healthcare": 2.5,
			"finance":    3.0,
			"government": 2.0,
		},
		DefaultIndustry:    "general",
		MaxAnnualIncidents: 12,
		ReputationHours:    4,
	}
}

// Validate checks semantic constraints the struct tags cannot express.
func (c Config) Validate() error {
	if _, ok := c.IndustryMultipliers[c.DefaultIndustry]; !ok {
		return fmt.Errorf("cost.default_industry %q has no multiplier", c.DefaultIndustry)
	}
	for industry, m := range c.IndustryMultipliers {
		if m <= 0 {
			return fmt.Errorf("cost.industry_multipliers[%s] must be positive", industry)
		}
	}
	for t, n := range c.Rates.EngineersByType {
		if n < 0 {
			return fmt.Errorf("cost.rates.engineers_by_type[%s] must be non-negative", t)
		}
	}
	for t, v := range c.Rates.RecoveryBaseByType {
		if v < 0 {
			return fmt.Errorf("cost.rates.recovery_base_by_type[%s] must be non-negative", t)
		}
	}
	return nil
}
