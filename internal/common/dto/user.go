package dto

// UpdateProfileRequest lets a user edit their own account.
type UpdateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Password  *string `json:"password"`
}

// AdminCreateUserRequest creates an account on behalf of someone else.
type AdminCreateUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AdminUpdateUserRequest carries a partial account update.
type AdminUpdateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}
