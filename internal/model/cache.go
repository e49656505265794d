package model

import "time"

// CacheEntry remembers the confirmed category of one merchant for one household.
type CacheEntry struct {
	LastSeen    time.Time `json:"last_seen"`
	HouseholdID string    `json:"household_id"`
	Fingerprint string    `json:"fingerprint"`
	Category    string    `json:"category"`
	Confidence  float64   `json:"confidence"`
	HitCount    int       `json:"hit_count"`
}
