package store

import (
	"fmt"
	"regexp"
)

var validCollectionName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateCollectionName accepts names made of letters, digits and underscores, which
// are safe both as SQL identifiers and inside colon separated key prefixes.
func ValidateCollectionName(name string) error {
	if !validCollectionName.MatchString(name) {
		return NewStorageError(
			fmt.Sprintf("invalid collection name %q: only letters, digits and underscores are allowed", name),
			nil,
		)
	}
	return nil
}

// BaseVectorStore is the base implementation of a VectorStore. Client is the underlying datastore client,
// such as a database connection.
type BaseVectorStore[T any] struct {
	Client     T
	Collection string
	Dims       int
}

func (s *BaseVectorStore[T]) CollectionName() string {
	return s.Collection
}

func (s *BaseVectorStore[T]) Dimensions() int {
	return s.Dims
}
