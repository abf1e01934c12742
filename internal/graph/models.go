package graph

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// ResourceType classifies a resource. Values outside the known set are kept
// verbatim and treated as unknown by the per-type tables.
type ResourceType string

const (
	TypeCompute      ResourceType = "compute"
	TypeDatabase     ResourceType = "database"
	TypeCache        ResourceType = "cache"
	TypeStorage      ResourceType = "storage"
	TypeNetwork      ResourceType = "network"
	TypeIdentity     ResourceType = "identity"
	TypeLoadBalancer ResourceType = "loadbalancer"
	TypeQueue        ResourceType = "queue"
	TypeContainer    ResourceType = "container"
	TypeServerless   ResourceType = "serverless"
)

// KnownTypes lists every resource type with engine-specific behaviour.
var KnownTypes = []ResourceType{
	TypeCompute, TypeDatabase, TypeCache, TypeStorage, TypeNetwork,
	TypeIdentity, TypeLoadBalancer, TypeQueue, TypeContainer, TypeServerless,
}

// IsKnown reports whether t is one of KnownTypes.
func (t ResourceType) IsKnown() bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// CriticalityTier is a user-assigned or derived importance class.
type CriticalityTier string

const (
	CriticalityCritical CriticalityTier = "critical"
	CriticalityHigh     CriticalityTier = "high"
	CriticalityMedium   CriticalityTier = "medium"
	CriticalityLow      CriticalityTier = "low"
)

// Valid reports whether c is empty or one of the defined tiers.
func (c CriticalityTier) Valid() bool {
	switch c {
	case "", CriticalityCritical, CriticalityHigh, CriticalityMedium, CriticalityLow:
		return true
	}
	return false
}

// Resource is a node in the infrastructure graph.
type Resource struct {
	ID          string          `json:"id" yaml:"id"`
	Type        ResourceType    `json:"type" yaml:"type"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Provider    string          `json:"provider,omitempty" yaml:"provider,omitempty"`
	Region      string          `json:"region,omitempty" yaml:"region,omitempty"`
	Attributes  Attributes      `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Criticality CriticalityTier `json:"criticality,omitempty" yaml:"criticality,omitempty"`
}

// DisplayName returns Name, or ID when Name is empty.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Validate checks the invariants a store relies on.
func (r Resource) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("resource id must not be empty")
	}
	if r.Type == "" {
		return fmt.Errorf("resource %q: type must not be empty", r.ID)
	}
	if !r.Criticality.Valid() {
		return fmt.Errorf("resource %q: unknown criticality tier %q", r.ID, r.Criticality)
	}
	return nil
}

// EdgeKind separates dependency edges from redundancy links.
type EdgeKind string

const (
	// KindDependsOn means SourceID depends on TargetID.
	KindDependsOn EdgeKind = "DEPENDS_ON"
	// KindRedundantWith is a symmetric link between interchangeable resources.
	// Traversals ignore it.
	KindRedundantWith EdgeKind = "REDUNDANT_WITH"
)

// DependencyCategory is the nature of a dependency.
type DependencyCategory string

const (
	CategoryData          DependencyCategory = "DATA"
	CategoryNetwork       DependencyCategory = "NETWORK"
	CategoryConfiguration DependencyCategory = "CONFIGURATION"
	CategoryCompute       DependencyCategory = "COMPUTE"
)

// DependencyType says how hard a dependency is.
type DependencyType string

const (
	DependencyRequired DependencyType = "REQUIRED"
	DependencyOptional DependencyType = "OPTIONAL"
	DependencyStrong   DependencyType = "STRONG"
	DependencyWeak     DependencyType = "WEAK"
)

// Valid reports whether t is one of the four dependency types.
func (t DependencyType) Valid() bool {
	switch t {
	case DependencyRequired, DependencyOptional, DependencyStrong, DependencyWeak:
		return true
	}
	return false
}

// Edge is a directed relationship. For KindDependsOn, SourceID depends on TargetID.
type Edge struct {
	SourceID        string             `json:"source_id" yaml:"source"`
	TargetID        string             `json:"target_id" yaml:"target"`
	Kind            EdgeKind           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Category        DependencyCategory `json:"category,omitempty" yaml:"category,omitempty"`
	Type            DependencyType     `json:"type,omitempty" yaml:"type,omitempty"`
	Strength        float64            `json:"strength" yaml:"strength"`
	DiscoveryMethod string             `json:"discovery_method,omitempty" yaml:"discovery_method,omitempty"`
}

// EffectiveKind returns Kind, defaulting to KindDependsOn.
func (e Edge) EffectiveKind() EdgeKind {
	if e.Kind == "" {
		return KindDependsOn
	}
	return e.Kind
}

// IsDependency reports whether e carries dependency semantics.
func (e Edge) IsDependency() bool {
	return e.EffectiveKind() == KindDependsOn
}

// Validate checks endpoint ids, kind, type and the strength range.
func (e Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("edge endpoints must not be empty (source=%q target=%q)", e.SourceID, e.TargetID)
	}
	if e.Strength < 0 || e.Strength > 1 {
		return fmt.Errorf("edge %s->%s: strength %.3f outside [0,1]", e.SourceID, e.TargetID, e.Strength)
	}
	switch e.EffectiveKind() {
	case KindDependsOn:
		if !e.Type.Valid() {
			return fmt.Errorf("edge %s->%s: unknown dependency type %q", e.SourceID, e.TargetID, e.Type)
		}
	case KindRedundantWith:
	default:
		return fmt.Errorf("edge %s->%s: unknown kind %q", e.SourceID, e.TargetID, e.Kind)
	}
	return nil
}

// Attributes is the provider-specific property bag of a resource. Values
// decoded from YAML, JSON or the graph store arrive with varying concrete
// types, so the accessors coerce where the meaning is unambiguous.
type Attributes map[string]interface{}

// Clone returns a shallow copy of a. Nil stays nil.
func (a Attributes) Clone() Attributes {
	return maps.Clone(a)
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Int returns key as an int.
func (a Attributes) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Float returns key as a float64.
func (a Attributes) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Bool returns key as a bool. Numbers are true when non-zero.
func (a Attributes) Bool(key string) (bool, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	if f, ok := a.Float(key); ok {
		return f != 0, true
	}
	return false, false
}

// String returns key as a string.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return fmt.Sprintf("%v", v), true
}

// StringSlice returns key as a list of strings. A single string is a
// one-element list.
func (a Attributes) StringSlice(key string) ([]string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	switch s := v.(type) {
	case []string:
		return s, true
	case string:
		if s == "" {
			return nil, true
		}
		return []string{s}, true
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out, true
	}
	return nil, false
}

// Time returns key as a time. RFC3339 strings, unix seconds and time.Time
// values are accepted.
func (a Attributes) Time(key string) (time.Time, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		if err == nil {
			return parsed, true
		}
	}
	if secs, ok := a.Float(key); ok {
		return time.Unix(int64(secs), 0).UTC(), true
	}
	return time.Time{}, false
}
