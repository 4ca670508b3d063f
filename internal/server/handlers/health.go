package handlers

import (
	"context"

	"github.com/maruel/todod/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, _ *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}, nil
}

// Schema returns the JSON Schema of every API body type.
func Schema(ctx context.Context, _ *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	s := dto.Schemas()
	return &s, nil
}
