package dto

// CreateNoteRequest attaches a note to a task.
type CreateNoteRequest struct {
	TaskID    uint    `json:"taskId" binding:"required"`
	Content   string  `json:"content" binding:"required"`
	TimeSpent float64 `json:"timeSpent"`
}

// UpdateNoteRequest carries a partial update; nil fields are untouched.
type UpdateNoteRequest struct {
	Content   *string  `json:"content"`
	TimeSpent *float64 `json:"timeSpent"`
}
