package dto

// CreateTaskRequest is the payload for creating a task in a project.
type CreateTaskRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	Duration     int     `json:"duration"`
	Progress     int     `json:"progress"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	AssignedTo   *uint   `json:"assignedTo"`
	ParentTaskID *uint   `json:"parentTaskId"`
	Budget       float64 `json:"budget"`
}

// UpdateTaskRequest carries a partial update; nil fields are untouched.
type UpdateTaskRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	StartDate    *string  `json:"startDate"`
	EndDate      *string  `json:"endDate"`
	Duration     *int     `json:"duration"`
	Progress     *int     `json:"progress"`
	Priority     *string  `json:"priority"`
	Status       *string  `json:"status"`
	AssignedTo   *uint    `json:"assignedTo"`
	ParentTaskID *uint    `json:"parentTaskId"`
	Budget       *float64 `json:"budget"`
}

// AddDependencyRequest links the target task to an upstream task.
type AddDependencyRequest struct {
	DependsOnTaskID uint   `json:"dependsOnTaskId" binding:"required"`
	Type            string `json:"dependencyType"`
	Lag             int    `json:"lag"`
}
