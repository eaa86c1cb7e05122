package dto

// CreateClientRequest is the payload for creating a client record.
type CreateClientRequest struct {
	Name           string `json:"name" binding:"required"`
	Address        string `json:"address"`
	SiteManager    string `json:"siteManager"`
	ProjectManager string `json:"projectManager"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}

// UpdateClientRequest carries a partial update; nil fields are untouched.
type UpdateClientRequest struct {
	Name           *string `json:"name"`
	Address        *string `json:"address"`
	SiteManager    *string `json:"siteManager"`
	ProjectManager *string `json:"projectManager"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
}
