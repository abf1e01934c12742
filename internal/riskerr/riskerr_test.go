package riskerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not found", err: NotFound("db-1"), want: KindNotFound},
		{name: "wrapped", err: fmt.Errorf("scoring: %w", InvalidParameter("depth", "must be >= 0")), want: KindInvalidParameter},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "plain", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil, "get resource"))

	nf := NotFound("x")
	assert.Same(t, nf, Classify(nf, "get resource"))

	err := Classify(errors.New("connection refused"), "get resource")
	assert.True(t, IsKind(err, KindUpstreamUnavailable))
	assert.Contains(t, err.Error(), "connection refused")

	err = Classify(context.Canceled, "list resources")
	assert.True(t, IsKind(err, KindTimeout))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, FromContext(ctx, "scan"))

	cancel()
	err := FromContext(ctx, "scan")
	assert.True(t, IsKind(err, KindTimeout))
	assert.Contains(t, err.Error(), "scan did not complete")
}

func TestErrorDetails(t *testing.T) {
	err := InvalidParameter("industry", "unknown key %q", "mining")
	assert.Equal(t, "InvalidParameter: invalid industry: unknown key \"mining\"", err.Error())
	assert.Equal(t, "industry", err.Details["parameter"])
}
