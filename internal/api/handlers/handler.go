// Package handlers serves the /v1 analysis endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
	"github.com/moolen/riskgraph/internal/api/response"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
)

// DefaultMaxBodyBytes caps POST bodies when no limit is configured.
const DefaultMaxBodyBytes = 4 << 20

// base holds what every handler needs.
type base struct {
	engine       *engine.Engine
	logger       *logging.Logger
	tracer       trace.Tracer
	validate     *validator.Validate
	maxBodyBytes int64
	now          func() time.Time
}

// Options configures the handlers.
type Options struct {
	MaxBodyBytes int64
	// Now is the clock used to resolve relative times. Defaults to time.Now.
	Now func() time.Time
}

func newBase(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) base {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return base{
		engine:       eng,
		logger:       logger,
		tracer:       tracer,
		validate:     validator.New(),
		maxBodyBytes: opts.MaxBodyBytes,
		now:          opts.Now,
	}
}

// startSpan opens a handler span; finish records the outcome.
func (b base) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, "api."+name, trace.WithAttributes(attrs...))
}

// respond writes result or err and closes the span.
func (b base) respond(w http.ResponseWriter, span trace.Span, result interface{}, err error) {
	defer span.End()
	if err != nil {
		apiErr := apierrors.FromError(err)
		span.SetAttributes(attribute.Int("http.status_code", apiErr.HTTPStatus))
		span.RecordError(err)
		span.SetStatus(codes.Error, apiErr.Message)
		if apiErr.HTTPStatus >= http.StatusInternalServerError && apiErr.HTTPStatus != http.StatusGatewayTimeout {
			b.logger.Error("Request failed: %v", err)
		}
	}
	response.WriteResult(w, result, err)
}

// decodeBody reads a bounded JSON body into dst and validates it.
func (b base) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apierrors.NewInvalidRequestError("Content-Type must be application/json, got %q", ct)
	}
	body := http.MaxBytesReader(w, r.Body, b.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apierrors.NewInvalidRequestError("request body is required")
		}
		return apierrors.NewInvalidRequestError("invalid JSON body: %v", err)
	}
	if err := b.validate.Struct(dst); err != nil {
		return apierrors.NewInvalidRequestError("%s", validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
