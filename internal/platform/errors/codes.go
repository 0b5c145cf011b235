// Package errors provides structured error codes for feed cache failures.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Store lifecycle errors
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeStoreClosed      Code = "STORE_CLOSED"

	// Engine errors
	CodeEngineFailure Code = "ENGINE_FAILURE"

	// Item errors
	CodeInvalidItem Code = "INVALID_ITEM"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidItem:
		return codes.InvalidArgument
	case CodeStoreClosed:
		return codes.FailedPrecondition
	case CodeStoreUnavailable:
		return codes.Unavailable
	case CodeEngineFailure:
		return codes.Internal
	default:
		return codes.Unknown
	}
}
