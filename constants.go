package server

import "time"

const (
	writeWait = 10 * time.Second

	defaultTickRate          = 30
	defaultHeartbeatInterval = 2 * time.Second
	defaultDisconnectAfter   = 3 * defaultHeartbeatInterval
)
