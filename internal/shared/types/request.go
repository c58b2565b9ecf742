package types

// LaunchRequest represents an application launch request
type LaunchRequest struct {
	LaunchedBy string `json:"launched_by" binding:"required"`
}

// TerminateRequest carries termination options
type TerminateRequest struct {
	Force bool `json:"force"`
}

// SwitcherSelectRequest selects a switcher entry by index
type SwitcherSelectRequest struct {
	Index int `json:"index"`
}

// WSMessage represents a WebSocket control message from a client
type WSMessage struct {
	Type string `json:"type"`
}
