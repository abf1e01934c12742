package cost

import (
	"fmt"
	"math"
)

// AnnualRisk is the expected yearly cost of a resource's failures.
type AnnualRisk struct {
	ResourceID          string     `json:"resource_id"`
	RiskScore           float64    `json:"risk_score"`
	ExpectedIncidents   float64    `json:"expected_incidents_per_year"`
	IncidentProbability float64    `json:"incident_probability"` // P(at least one incident in a year)
	SingleIncident      *Breakdown `json:"single_incident"`
	ExpectedAnnualCost  float64    `json:"expected_annual_cost"`
	ROIRecommendations  []string   `json:"roi_recommendations"`
}

// AnnualRiskCost scales a single incident by the incident rate implied by
// riskScore: MaxAnnualIncidents * score/100 incidents a year.
func (e *Estimator) AnnualRiskCost(single *Breakdown, riskScore float64) *AnnualRisk {
	score := math.Max(0, math.Min(100, riskScore))
	rate := e.config.MaxAnnualIncidents * score / 100
	annual := single.TotalCost * rate

	ar := &AnnualRisk{
		ResourceID:          single.ResourceID,
		RiskScore:           score,
		ExpectedIncidents:   math.Round(rate*100) / 100,
		IncidentProbability: math.Round((1-math.Exp(-rate))*1000) / 1000,
		SingleIncident:      single,
		ExpectedAnnualCost:  cents(annual),
	}
	ar.ROIRecommendations = roiRecommendations(ar)
	return ar
}

func roiRecommendations(ar *AnnualRisk) []string {
	out := []string{}
	switch {
	case ar.ExpectedAnnualCost >= 1_000_000:
		out = append(out, fmt.Sprintf(
			"Expected annual loss of $%.0f justifies a dedicated high-availability project (multi-region failover)", ar.ExpectedAnnualCost))
	case ar.ExpectedAnnualCost >= 100_000:
		out = append(out, fmt.Sprintf(
			"Expected annual loss of $%.0f justifies adding replicas or a warm standby", ar.ExpectedAnnualCost))
	case ar.ExpectedAnnualCost >= 10_000:
		out = append(out, "Moderate annual exposure: prioritise backups, monitoring and runbooks over new infrastructure")
	default:
		out = append(out, "Low annual exposure: accept the risk and review again after major changes")
	}
	if ar.RiskScore >= 75 {
		out = append(out, fmt.Sprintf(
			"Risk score is critical: every 10 points of reduction removes about $%.0f of expected annual loss",
			ar.ExpectedAnnualCost/ar.RiskScore*10))
	} else if ar.RiskScore >= 50 {
		out = append(out, "Risk score is high: fixing misconfigurations is the cheapest way to lower expected loss")
	}
	if ar.SingleIncident.Component(ComponentSLA) > 0 {
		out = append(out, "SLA penalties apply: tighten recovery time objectives to cap credit exposure")
	}
	return out
}
