package parsing

import (
	"net/url"
	"strconv"
	"strings"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
	"github.com/moolen/riskgraph/internal/graph"
)

// RequiredString returns a non-empty parameter.
func RequiredString(q url.Values, name string) (string, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return "", apierrors.NewInvalidRequestError("%s is required", name)
	}
	return v, nil
}

// OptionalInt returns def when the parameter is absent.
func OptionalInt(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.NewInvalidRequestError("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// OptionalBool returns def when the parameter is absent.
func OptionalBool(q url.Values, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apierrors.NewInvalidRequestError("%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}

// OptionalBoolPtr returns nil when the parameter is absent.
func OptionalBoolPtr(q url.Values, name string) (*bool, error) {
	if strings.TrimSpace(q.Get(name)) == "" {
		return nil, nil
	}
	v, err := OptionalBool(q, name, false)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// OptionalFloatPtr returns nil when the parameter is absent.
func OptionalFloatPtr(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierrors.NewInvalidRequestError("%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

// OptionalInt64Ptr returns nil when the parameter is absent.
func OptionalInt64Ptr(q url.Values, name string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apierrors.NewInvalidRequestError("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}

// ResourceFilter reads the type, provider, region and limit scope filters.
func ResourceFilter(q url.Values) (graph.ResourceFilter, error) {
	limit, err := OptionalInt(q, "limit", 0)
	if err != nil {
		return graph.ResourceFilter{}, err
	}
	return graph.ResourceFilter{
		Type:     graph.ResourceType(strings.TrimSpace(q.Get("type"))),
		Provider: strings.TrimSpace(q.Get("provider")),
		Region:   strings.TrimSpace(q.Get("region")),
		Limit:    limit,
	}, nil
}
