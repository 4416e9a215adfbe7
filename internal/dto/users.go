package dto

import "github.com/octobees/usersapi/internal/entity"

// UsersListResponse is returned by GET /api/users.
type UsersListResponse struct {
	Message string        `json:"message"`
	Users   []entity.User `json:"users"`
	Count   int           `json:"count"`
}

// UserResponse wraps a single user projection.
type UserResponse struct {
	Message string       `json:"message"`
	User    *entity.User `json:"user"`
}

// DeletedUserResponse confirms a removal with the minimal projection.
type DeletedUserResponse struct {
	Message string              `json:"message"`
	User    *entity.DeletedUser `json:"user"`
}
