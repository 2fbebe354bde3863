package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound         = errors.New("resource not found") // General not found
	ErrBuildingNotFound = errors.New("building not found")
	ErrPlayerNotFound   = errors.New("player not found")

	// User & Authentication Errors
	ErrUserAlreadyExists  = errors.New("player with this username already exists")
	ErrEmailAlreadyExists = errors.New("player with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token Errors
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	// Progression Errors
	ErrAlreadyInProgress     = errors.New("building already in progress")
	ErrAlreadyCompleted      = errors.New("building already completed")
	ErrInsufficientResources = errors.New("not enough resources")
	ErrDependencyNotMet      = errors.New("dependency not completed")
	ErrNotInProgress         = errors.New("building not in progress")
	ErrAlreadyDue            = errors.New("building already finished")

	// Concurrency & Collaborator Errors
	ErrStateConflict     = errors.New("player record was modified concurrently")
	ErrSchedulingFailure = errors.New("failed to schedule building completion")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)

// NewDependencyNotMetError оборачивает ErrDependencyNotMet, сохраняя id
// первой непостроенной зависимости в тексте ошибки (порядок — из каталога).
func NewDependencyNotMetError(buildingID int) error {
	return fmt.Errorf("dependency %d not completed: %w", buildingID, ErrDependencyNotMet)
}
