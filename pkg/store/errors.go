package store

import (
	"errors"
	"fmt"

	"github.com/emotibot/emotibot/pkg/models"
)

type StorageError struct {
	Message       string
	OriginalError error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *StorageError) Unwrap() []error {
	return []error{models.ErrStorage, e.OriginalError}
}

func NewStorageError(message string, originalError error) *StorageError {
	return &StorageError{Message: message, OriginalError: originalError}
}

var ErrEmbeddingMismatch = errors.New("embedding width mismatch")

type EmbeddingMismatchError struct {
	Expected int
	Actual   int
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf(
		"embedding width mismatch: collection expects %d dimensions, got %d. please ensure that "+
			"embeddings.dimensions in the config matches the width of the vectors you are generating",
		e.Expected,
		e.Actual,
	)
}

func (e *EmbeddingMismatchError) Unwrap() []error {
	return []error{ErrEmbeddingMismatch, models.ErrStorage}
}

func NewEmbeddingMismatchError(expected, actual int) *EmbeddingMismatchError {
	return &EmbeddingMismatchError{Expected: expected, Actual: actual}
}
