package aio

import "github.com/manpen/foxxll/internal/constants"

// Re-exported tunable defaults; see internal/constants for rationale.
const (
	DefaultQueueDepth = constants.DefaultQueueDepth
	DefaultBlockAlign = constants.DefaultBlockAlign
	DefaultMaxIOSize  = constants.DefaultMaxIOSize
	AutoAssignQueueID = constants.AutoAssignQueueID
)
