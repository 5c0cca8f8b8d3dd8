package user

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// UpdateUserRequest represents the request payload for updating an existing user.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	ID    int64   `validate:"required"`
	Name  *string `validate:"omitempty"`
	Email *string `validate:"omitempty,email"`
}

// ListUsersRequest represents the request payload for listing users.
type ListUsersRequest struct {
	Skip  int
	Limit int
}
