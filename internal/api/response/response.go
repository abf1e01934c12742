// Package response writes JSON API responses.
package response

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// WriteJSON writes data as JSON without HTML escaping.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// WriteSuccess sends data with HTTP 200.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return WriteJSON(w, data)
}

// WriteError sends err with the status of its kind.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := apierrors.FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = WriteJSON(w, apiErr.Response())
}

// WriteResult sends result, or err when set. A result returned alongside a
// Timeout error is attached to the error as details.partial.
func WriteResult(w http.ResponseWriter, result interface{}, err error) {
	if err == nil {
		_ = WriteSuccess(w, result)
		return
	}
	apiErr := apierrors.FromError(err)
	if apiErr.Kind == riskerr.KindTimeout && !isNil(result) {
		apiErr.WithPartial(result)
	}
	WriteError(w, apiErr)
}

// isNil also catches typed nil pointers.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
