package models

import (
	"time"

	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/workspace"
)

type CreationListResponse struct {
	Creations []workspace.Creation `json:"creations"`
}

type InputResponse struct {
	Input generation.Input `json:"input"`
}

type InputsResponse struct {
	Inputs []generation.Input `json:"inputs"`
}

type GenerateResponse struct {
	Capability string `json:"capability"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	Onboarded bool      `json:"onboarded"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PublishResponse struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

type PromptResponse struct {
	Prompt   string `json:"prompt"`
	Reverted bool   `json:"reverted"`
}

type CredentialResponse struct {
	CredentialReady bool `json:"credential_ready"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
