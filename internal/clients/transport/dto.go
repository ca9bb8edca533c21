// Package transport defines the request and response shapes of the clients
// API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateClientRequest struct {
	FullName    string `json:"fullName" validate:"required,min=2,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	ServiceType string `json:"serviceType" validate:"required,oneof=single_consultation hundred_days"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
	// StartProgram immediately opens the workflow at the first stage instead
	// of leaving the client pending.
	StartProgram bool `json:"startProgram"`
}

type UpdateClientRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active inactive"`
}

type ListClientsRequest struct {
	Status      string `form:"status" validate:"omitempty,oneof=pending active inactive"`
	ServiceType string `form:"serviceType" validate:"omitempty,oneof=single_consultation hundred_days"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ClientResponse struct {
	ID               uuid.UUID  `json:"id"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	ServiceType      string     `json:"serviceType"`
	Status           string     `json:"status"`
	ProgramStartedAt *time.Time `json:"programStartedAt,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type ClientListResponse struct {
	Items    []ClientResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}
