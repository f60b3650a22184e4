package service

import (
	"errors"
	"fmt"
)

// 錯誤種類，dispatcher 依此決定是否回報給發送者
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage failure")
)

// ClientError 會以 "error" 事件回報給發起的連線
type ClientError struct {
	Message string
	Kind    error
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is 讓 errors.Is 可以比對錯誤種類
func (e *ClientError) Is(target error) bool {
	return e.Kind == target
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func validationError(message string) error {
	return &ClientError{Message: message, Kind: ErrValidation}
}

func notFoundError(message string) error {
	return &ClientError{Message: message, Kind: ErrNotFound}
}

func forbiddenError(message string) error {
	return &ClientError{Message: message, Kind: ErrForbidden}
}

func storageError(message string, err error) error {
	return &ClientError{Message: message, Kind: ErrStorage, Err: err}
}
