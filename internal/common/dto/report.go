package dto

// CreateReportRequest is the payload for filing an intervention report.
type CreateReportRequest struct {
	TaskID          uint    `json:"taskId" binding:"required"`
	Title           string  `json:"title" binding:"required"`
	TimeSpent       float64 `json:"timeSpent" binding:"required,gt=0"`
	Description     string  `json:"description"`
	WorkDone        string  `json:"workDone"`
	Issues          string  `json:"issues"`
	Recommendations string  `json:"recommendations"`
}

// UpdateReportRequest carries a partial update; nil fields are untouched.
type UpdateReportRequest struct {
	Title           *string  `json:"title"`
	TimeSpent       *float64 `json:"timeSpent"`
	Description     *string  `json:"description"`
	WorkDone        *string  `json:"workDone"`
	Issues          *string  `json:"issues"`
	Recommendations *string  `json:"recommendations"`
	Status          *string  `json:"status"`
}
