package common

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one backing dependency of the referral platform.
type Probe func(ctx context.Context) error

// DependencyStatus reports the outcome of a single probe.
type DependencyStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the payload served on /healthz.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

const probeTimeout = 2 * time.Second

// HealthCheck reports liveness without touching any dependency.
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		})
	}
}

// HealthCheckWithDeps probes the platform's backing stores and answers 503
// if any of them is unreachable. Each probe runs under its own timeout so a
// hung dependency cannot stall the endpoint.
func HealthCheckWithDeps(serviceName, version string, probes map[string]Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		overall := "healthy"
		deps := make(map[string]DependencyStatus, len(probes))

		for name, probe := range probes {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			start := time.Now()
			err := probe(ctx)
			cancel()

			dep := DependencyStatus{
				Status:  "healthy",
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				dep.Status = "unhealthy"
				dep.Error = err.Error()
				overall = "unhealthy"
			}
			deps[name] = dep
		}

		statusCode := http.StatusOK
		if overall == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, HealthResponse{
			Status:       overall,
			Service:      serviceName,
			Version:      version,
			Dependencies: deps,
		})
	}
}
