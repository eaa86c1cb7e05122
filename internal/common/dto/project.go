package dto

import "github.com/chantierhq/chantier/internal/apiserver/database"

// CreateProjectRequest is the payload for creating a project.
type CreateProjectRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Status      string  `json:"status"`
	Budget      float64 `json:"budget"`
	ClientID    *uint   `json:"clientId"`
}

// UpdateProjectRequest carries a partial update; nil fields are untouched.
type UpdateProjectRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	StartDate   *string  `json:"startDate"`
	EndDate     *string  `json:"endDate"`
	Status      *string  `json:"status"`
	Budget      *float64 `json:"budget"`
	ClientID    *uint    `json:"clientId"`
}

// AddMemberRequest adds a user to a project by username.
type AddMemberRequest struct {
	Username    string                `json:"username" binding:"required"`
	Role        string                `json:"role"`
	Permissions *database.Permissions `json:"permissions"`
}
