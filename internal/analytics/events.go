// Package analytics ships one event per answered query to Kafka without
// blocking the connection that produced it.
package analytics

import "time"

type Outcome string

const (
	OutcomeHit        Outcome = "hit"
	OutcomeZeroResult Outcome = "zero_result"
	OutcomeError      Outcome = "error"
)

// QueryEvent describes one answered query.
type QueryEvent struct {
	Word        string    `json:"word"`
	Outcome     Outcome   `json:"outcome"`
	Results     int       `json:"results"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyUs   int64     `json:"latency_us"`
	Fingerprint string    `json:"index_fingerprint"`
	ConnID      string    `json:"conn_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
