package model

// Client commands accepted on a simulation stream
const (
	WSCommandPause     = "pause"
	WSCommandResume    = "resume"
	WSCommandCancel    = "cancel"
	WSCommandGetStatus = "get_status"
)

// WSCommand is a client-to-server control message on a simulation stream.
type WSCommand struct {
	Command string `json:"command"`
}

// StreamOptions are the per-connection filters parsed from query params.
type StreamOptions struct {
	IncludeHits         bool
	IncludeTrajectories bool
}

// ConnectionStats summarizes live WebSocket connections across streams.
type ConnectionStats struct {
	ActiveSimulations       []string       `json:"active_simulations"`
	TotalConnections        int            `json:"total_connections"`
	ConnectionsBySimulation map[string]int `json:"connections_by_simulation"`
}
