package core

import "time"

const (
	// MaxErrorMessageLength caps error messages sent to API clients
	MaxErrorMessageLength = 500

	// MaxWorkflowNameLength caps workflow names
	MaxWorkflowNameLength = 200

	// MaxWorkflowNodes caps the number of nodes a workflow can hold
	MaxWorkflowNodes = 100

	// DefaultPlatformTimeout is used when no request timeout is configured
	DefaultPlatformTimeout = 30 * time.Second
)

// Collection names in the document store
const (
	CollectionActions   = "actions"
	CollectionWorkflows = "workflows"
)
