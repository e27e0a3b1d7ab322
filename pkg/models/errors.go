package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInitialization = errors.New("initialization failed")
	ErrEmbedding      = errors.New("embedding failed")
	ErrGeneration     = errors.New("generation failed")
	ErrStorage        = errors.New("storage failed")
	ErrValidation     = errors.New("validation failed")
)

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// InitializationError is returned when a component cannot be constructed, for example
// when the vector store cannot be opened or a required collaborator is missing.
type InitializationError struct {
	Component     string
	OriginalError error
}

func (e *InitializationError) Error() string {
	if e.OriginalError == nil {
		return fmt.Sprintf("failed to initialize %s", e.Component)
	}
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.OriginalError)
}

func (e *InitializationError) Unwrap() []error {
	return []error{ErrInitialization, e.OriginalError}
}

func NewInitializationError(component string, originalError error) *InitializationError {
	return &InitializationError{Component: component, OriginalError: originalError}
}

type EmbeddingError struct {
	Message       string
	OriginalError error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbedding, e.OriginalError}
}

func NewEmbeddingError(message string, originalError error) *EmbeddingError {
	return &EmbeddingError{Message: message, OriginalError: originalError}
}

type GenerationError struct {
	Message       string
	OriginalError error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.OriginalError}
}

func NewGenerationError(message string, originalError error) *GenerationError {
	return &GenerationError{Message: message, OriginalError: originalError}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
