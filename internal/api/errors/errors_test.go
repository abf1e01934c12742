package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"

	"github.com/moolen/riskgraph/internal/riskerr"
)

func TestFromError_StatusByKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   connect.Code
		kind   riskerr.Kind
	}{
		{"not found", riskerr.NotFound("db-1"), http.StatusNotFound, connect.CodeNotFound, riskerr.KindNotFound},
		{"invalid", riskerr.InvalidParameter("limit", "must be >= 0"), http.StatusBadRequest, connect.CodeInvalidArgument, riskerr.KindInvalidParameter},
		{"insufficient", riskerr.InsufficientData("need 2 snapshots"), http.StatusUnprocessableEntity, connect.CodeFailedPrecondition, riskerr.KindInsufficientData},
		{"timeout", riskerr.FromContext(cancelled(), "scan"), http.StatusGatewayTimeout, connect.CodeDeadlineExceeded, riskerr.KindTimeout},
		{"raw deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, connect.CodeDeadlineExceeded, riskerr.KindTimeout},
		{"upstream", riskerr.Upstream(fmt.Errorf("connection refused"), "query failed"), http.StatusServiceUnavailable, connect.CodeUnavailable, riskerr.KindUpstreamUnavailable},
		{"wrapped", fmt.Errorf("scoring: %w", riskerr.NotFound("x")), http.StatusNotFound, connect.CodeNotFound, riskerr.KindNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, connect.CodeInternal, riskerr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.code, apiErr.ConnectCode)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.code, apiErr.ConnectError().Code())
		})
	}
}

func TestFromError_KeepsMessageAndDetails(t *testing.T) {
	apiErr := FromError(riskerr.NotFound("db-1"))
	resp := apiErr.Response()
	assert.Equal(t, "NotFound", resp.Error)
	assert.Equal(t, `resource "db-1" not found`, resp.Message)
	assert.Equal(t, "db-1", resp.Details["resource_id"])
}

func TestWithPartial(t *testing.T) {
	partial := map[string]int{"resources_scanned": 3}
	apiErr := FromError(riskerr.FromContext(cancelled(), "spof scan")).WithPartial(partial)
	assert.Equal(t, partial, apiErr.Response().Details[PartialDetail])
}

func TestFromError_PassesAPIErrorThrough(t *testing.T) {
	original := NewInvalidRequestError("resource_id is required")
	assert.Same(t, original, FromError(fmt.Errorf("handler: %w", original)))
	assert.Empty(t, original.Response().Details)
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
