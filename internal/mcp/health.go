package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  string            `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The vector store, document store and answer cache implement it.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// Every named component is checked; any failure makes the service unhealthy.
func NewHealthHandler(components map[string]HealthChecker) http.HandlerFunc {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		// Create context with 3-second timeout for health checks
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:     "healthy",
			Components: make(map[string]string, len(names)),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		for _, name := range names {
			if err := components[name].Health(ctx); err != nil {
				response.Components[name] = "disconnected"
				response.Status = "unhealthy"
				code = http.StatusServiceUnavailable
				continue
			}
			response.Components[name] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
