package constants

const (
	// StatusAlive is reported in every heartbeat while the agent runs.
	StatusAlive = "alive"

	// SnapshotSchemaVersion is assumed for snapshots published without a version.
	SnapshotSchemaVersion = "1.0.0"
)

// Service names, used as registry keys.
const (
	ServicePipeline  = "pipeline"
	ServiceFeed      = "feed"
	ServiceLocation  = "location"
	ServiceHeartbeat = "heartbeat"
	ServiceHTTP      = "http"
)
