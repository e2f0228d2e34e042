package storage

import (
	"errors"
	"fmt"

	"conduit/core"
	"conduit/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Storage errors not covered by the domain sentinels
var (
	// ErrDatabaseClosed is returned when attempting to use a closed database connection
	ErrDatabaseClosed = errors.New("database is closed")
)

// objectID parses a hex document id
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", core.ErrInvalidID, id)
	}
	return oid, nil
}

// translate maps driver errors onto domain errors and counts failures
func translate(collection, operation string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case errors.Is(err, mongo.ErrClientDisconnected):
		metrics.StorageErrors.WithLabelValues(collection, operation).Inc()
		return fmt.Errorf("failed to %s: %w", operation, ErrDatabaseClosed)
	default:
		metrics.StorageErrors.WithLabelValues(collection, operation).Inc()
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
}

// hexID renders an inserted id as a string
func hexID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
