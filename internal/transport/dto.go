package transport

import (
	"github.com/bookly/bookly/internal/models"
)

type SignupRequest struct {
	Username  string `json:"username"   validate:"required,max=8"`
	Email     string `json:"email"      validate:"required,email,max=40"`
	FirstName string `json:"first_name" validate:"max=25"`
	LastName  string `json:"last_name"  validate:"max=25"`
	Password  string `json:"password"   validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=40"`
	Password string `json:"password" validate:"required,min=6"`
}

type EmailRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,dive,email"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	NewPassword        string `json:"new_password"         validate:"required,min=6"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required"`
}

type UserSummary struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
}

type LoginResponse struct {
	Message      string      `json:"message"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

type CreateBookRequest struct {
	Title         string      `json:"title"          validate:"required"`
	Author        string      `json:"author"         validate:"required"`
	Publisher     string      `json:"publisher"      validate:"required"`
	PublishedDate models.Date `json:"published_date" validate:"required"`
	PageCount     int         `json:"page_count"     validate:"required,gt=0"`
	Language      string      `json:"language"       validate:"required"`
}

type PatchBookRequest struct {
	Title     *string `json:"title"      validate:"omitempty,min=1"`
	Author    *string `json:"author"     validate:"omitempty,min=1"`
	Publisher *string `json:"publisher"  validate:"omitempty,min=1"`
	PageCount *int    `json:"page_count" validate:"omitempty,gt=0"`
	Language  *string `json:"language"   validate:"omitempty,min=1"`
}

type CreateReviewRequest struct {
	Rating     int    `json:"rating"      validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text" validate:"required"`
}

type TagRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type TagsRequest struct {
	Tags []TagRequest `json:"tags" validate:"required,min=1,dive"`
}

type Page[T any] struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Items []T   `json:"items"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
