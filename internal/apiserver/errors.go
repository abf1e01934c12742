package apiserver

import (
	"fmt"
	"net/http"

	"github.com/moolen/riskgraph/internal/api/response"
)

// handleMethodNotAllowed handles 405 responses
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)

	_ = response.WriteJSON(w, map[string]string{
		"error":   "MethodNotAllowed",
		"message": fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path),
	})
}

// handleRateLimited handles 429 responses
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = response.WriteJSON(w, map[string]string{
		"error":   "RateLimited",
		"message": fmt.Sprintf("Too many requests for %s, retry later", r.URL.Path),
	})
}
