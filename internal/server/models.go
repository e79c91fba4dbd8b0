package server

import (
	"devpilot/internal/orchestrator"
	"devpilot/internal/service"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
	Uptime string `json:"uptime" example:"2h30m15s"`
}

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Uptime string              `json:"uptime" example:"2h30m15s"`
	Status orchestrator.Status `json:"status"`
}

// ServicesResponse is returned by GET /api/services
type ServicesResponse struct {
	Services []service.RuntimeState `json:"services"`
}

// CommandRequest is the body of POST /api/commands
type CommandRequest struct {
	Type    string `json:"type" validate:"required" example:"build"`
	Service string `json:"service,omitempty" example:"api"`
}

// ChangesRequest is the body of POST /api/changes, sent by a file watcher
type ChangesRequest struct {
	Files []string `json:"files" validate:"required" example:"api/src/index.js"`
}

// ChangesResponse acknowledges queued files
type ChangesResponse struct {
	Queued int `json:"queued" example:"1"`
}

// ClientMessage is a command sent over the WebSocket
type ClientMessage struct {
	Type    string `json:"type" example:"build"`
	Service string `json:"service,omitempty"`
}

// CommandResultMessage answers a ClientMessage over the WebSocket
type CommandResultMessage struct {
	Type    string                     `json:"type" example:"command-result"`
	Command string                     `json:"command"`
	Result  orchestrator.CommandResult `json:"result"`
}

// MessageTypeCommandResult tags CommandResultMessage frames
const MessageTypeCommandResult = "command-result"
