package model

// ProctorLoginRequest is the proctor login payload.
type ProctorLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
