package models

import "time"

type Learner struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	GradeLevel *int      `json:"grade_level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	GradeLevel *int   `json:"grade_level,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token   string  `json:"token"`
	Learner Learner `json:"learner"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
