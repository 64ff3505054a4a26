package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// HealthStatus mirrors the upstream database.HealthStatus shape for the
// /health endpoint, adapted to a ping-based check (no connection-pool
// counters — the Mongo driver manages its pool internally).
type HealthStatus struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time_ms"`
}

// Health pings the server and reports round-trip time.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	if err := c.raw.Ping(ctx, readpref.Primary()); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, err
	}
	return &HealthStatus{Status: "healthy", ResponseTime: time.Since(start)}, nil
}
