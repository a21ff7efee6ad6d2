package domain

// SyncRunResult reports one reconciliation pass over one entity type.
// It is ephemeral; nothing persists it beyond the run's reporting surface.
type SyncRunResult struct {
	EntityType EntityType `json:"entity_type"`
	Scanned    int        `json:"scanned"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
}
