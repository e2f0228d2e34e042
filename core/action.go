package core

import "time"

// Action is a saved data collection method call against a connection.
// ID holds the hex form of the document's ObjectID.
type Action struct {
	ID             string         `json:"_id" bson:"_id,omitempty" example:"665f1c2e9b1e8a3d4c2b1a00"`
	ConnectionID   string         `json:"connectionId" bson:"connectionId" validate:"required,max=200"`
	IntegrationKey string         `json:"integrationKey,omitempty" bson:"integrationKey,omitempty" validate:"max=200"`
	CollectionKey  string         `json:"collectionKey" bson:"collectionKey" validate:"required,max=200"`
	Method         Method         `json:"method" bson:"method" validate:"required"`
	Input          any            `json:"input" bson:"input" swaggertype:"object"`
	Parameters     map[string]any `json:"parameters" bson:"parameters" swaggertype:"object"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt" swaggertype:"string"`
}

// TestResult is the outcome of test-running an action or method. Platform
// failures are reported in Error rather than as a transport error.
type TestResult struct {
	Success    bool           `json:"success"`
	Output     any            `json:"output,omitempty" swaggertype:"object"`
	Error      *PlatformError `json:"error,omitempty"`
	DurationMS int64          `json:"durationMs"`
}
