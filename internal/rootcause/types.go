package rootcause

import (
	"time"
)

// ChangeType separates code deployments from configuration changes.
type ChangeType string

const (
	ChangeDeployment    ChangeType = "deployment"
	ChangeConfiguration ChangeType = "configuration"
)

// Deployment is a change event supplied by the caller. A zero Timestamp
// means the time is unknown.
type Deployment struct {
	ID          string     `json:"id,omitempty"`
	ResourceID  string     `json:"resource_id" validate:"required"`
	Timestamp   time.Time  `json:"timestamp"`
	ChangeType  ChangeType `json:"change_type,omitempty"`
	Description string     `json:"description,omitempty"`
}

// AnomalyEvent is the output of an external anomaly scoring model.
type AnomalyEvent struct {
	ResourceID string    `json:"resource_id" validate:"required"`
	Timestamp  time.Time `json:"timestamp"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Score      float64   `json:"score" validate:"gte=0,lte=1"`
}

// DependencyFailure records a dependency observed failing.
type DependencyFailure struct {
	ResourceID  string    `json:"resource_id" validate:"required"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// Window is the incident interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Input is a root cause analysis request.
type Input struct {
	ResourceID         string              `json:"resource_id" validate:"required"`
	Window             Window              `json:"window"`
	MaxDependencyDepth int                 `json:"max_dependency_depth"`
	Deployments        []Deployment        `json:"deployments" validate:"dive"`
	Anomalies          []AnomalyEvent      `json:"anomalies" validate:"dive"`
	DependencyFailures []DependencyFailure `json:"dependency_failures" validate:"dive"`
}

// EventType classifies timeline events.
type EventType string

const (
	EventDeployment        EventType = "deployment"
	EventConfiguration     EventType = "configuration_change"
	EventAnomaly           EventType = "anomaly"
	EventDependencyFailure EventType = "dependency_failure"
)

// TimelineEvent is one merged event.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	ResourceID  string    `json:"resource_id"`
	Description string    `json:"description"`
	HopDistance int       `json:"hop_distance"` // -1 when outside the dependency path
	Approximate bool      `json:"approximate"`  // timestamp was missing and set to the window start

	metric string
	score  float64
}

// CauseType is the class of a candidate root cause.
type CauseType string

const (
	CauseDeployment         CauseType = "DEPLOYMENT"
	CauseDependencyFailure  CauseType = "DEPENDENCY_FAILURE"
	CauseResourceExhaustion CauseType = "RESOURCE_EXHAUSTION"
	CauseConfigChange       CauseType = "CONFIGURATION_CHANGE"
	CauseExternalAnomaly    CauseType = "EXTERNAL_ANOMALY"
	CauseUnknown            CauseType = "UNKNOWN"
)

// Candidate is a ranked root cause hypothesis.
type Candidate struct {
	Type               CauseType       `json:"type"`
	ResourceID         string          `json:"resource_id,omitempty"`
	Confidence         float64         `json:"confidence"`
	RawConfidence      float64         `json:"raw_confidence"`
	HopDistance        int             `json:"hop_distance"`
	Evidence           []TimelineEvent `json:"evidence"`
	RecommendedActions []string        `json:"recommended_actions"`
}

// DataQuality summarizes how much the input supports the ranking.
type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// Report is the result of a root cause analysis.
type Report struct {
	ID                 string          `json:"id"`
	ResourceID         string          `json:"resource_id"`
	Window             Window          `json:"window"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Timeline           []TimelineEvent `json:"timeline"`
	Candidates         []Candidate     `json:"candidates"`
	DataQuality        DataQuality     `json:"data_quality"`
	ConfidencePenalty  float64         `json:"confidence_penalty"`
	Warnings           []string        `json:"warnings"`
	UpstreamExamined   int             `json:"upstream_examined"`
	MaxDependencyDepth int             `json:"max_dependency_depth"`
	Complete           bool            `json:"complete"`
}

// Top returns the highest ranked candidate.
func (r *Report) Top() Candidate {
	return r.Candidates[0]
}
