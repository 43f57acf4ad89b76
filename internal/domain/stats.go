package domain

import (
	"context"
	"time"
)

// EndpointHit is a single read of an application endpoint, reported to the
// stats collaborator.
type EndpointHit struct {
	App       string    `json:"app"`
	URI       string    `json:"uri"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewStats is an aggregated visit count for one endpoint.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// StatsClient is the contract with the external view-counting collaborator.
// Hit records a read; failures are for the caller to log, never to surface.
// Stats returns visit counts over [start, end) for the given paths; with
// unique set, each caller address counts once per path.
type StatsClient interface {
	Hit(ctx context.Context, hit EndpointHit) error
	Stats(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ViewStats, error)
}
