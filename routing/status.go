package routing

import (
	"encoding/json"
)

// Status is the closed set of outcomes a query dispatch can produce.
// The dispatcher propagates the status reported by the capability unchanged;
// it never introduces an additional status of its own during normal operation.
type Status int

const (
	// StatusOk means the capability handled the request and produced a result.
	StatusOk Status = iota

	// StatusInvalidOptions means the request parameters were rejected by the
	// capability before any dataset access happened.
	StatusInvalidOptions

	// StatusError means the capability failed to produce a result, e.g. no
	// route could be found between the supplied coordinates.
	StatusError
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusInvalidOptions:
		return "InvalidOptions"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Result is the JSON document a capability produces for one query.
// Error results carry a {"code": ..., "message": ...} body.
type Result = json.RawMessage
