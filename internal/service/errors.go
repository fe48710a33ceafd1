package service

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrMissingToken        = errors.New("missing token")
	ErrExpiredToken        = errors.New("token expired")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid or reused refresh token")
	ErrServerConfig        = errors.New("server configuration error")
	ErrTooManyAttempts     = errors.New("too many login attempts")
)
