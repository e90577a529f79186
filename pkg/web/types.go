// Package web provides HTTP request and response types for the conversation API.
package web

import (
	"strings"

	"github.com/dukex/converse/pkg/orchestrator"
)

// MessageRequest is the body of POST /message/send and /message/stream.
type MessageRequest struct {
	ContextID string         `json:"context_id"           validate:"omitempty,max=128"`
	TaskID    string         `json:"task_id"              validate:"omitempty,max=128"`
	Input     string         `json:"input"                validate:"required_without=InputData"`
	InputData map[string]any `json:"input_data,omitempty"`
}

// TurnRequest builds the orchestrator request for the bearer token taken
// from the Authorization header.
func (r MessageRequest) TurnRequest(authorization string) orchestrator.TurnRequest {
	return orchestrator.TurnRequest{
		ContextID: r.ContextID,
		TaskID:    r.TaskID,
		Input:     r.Input,
		InputData: r.InputData,
		Token:     BearerToken(authorization),
	}
}

// BearerToken strips the "Bearer " scheme from an Authorization header value.
func BearerToken(authorization string) string {
	authorization = strings.TrimSpace(authorization)

	const scheme = "bearer "
	if len(authorization) >= len(scheme) && strings.EqualFold(authorization[:len(scheme)], scheme) {
		return strings.TrimSpace(authorization[len(scheme):])
	}

	return authorization
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Checkers map[string]string `json:"checkers"`
}
