package server

import (
	"opsmap/internal/domain"
)

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
}

type WorkspaceListResponse struct {
	Items []domain.Workspace `json:"items"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id" minLength:"1" example:"alice"`
}

type DevLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int64  `json:"expires_in" example:"3600"`
}
