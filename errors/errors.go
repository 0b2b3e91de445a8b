// Package errors defines the failure taxonomy of generated clients.
//
// Every failure a client surfaces is one of five kinds: a precondition
// violated before the request was built, an encoder failure, a transport
// level failure, an API error decoded from a non-success response, or a
// retry give-up wrapping the last attempt's failure. Kinds carry a gRPC
// code so that callers can translate them to HTTP statuses and back.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
)

type Kind int

const (
	KindUnknown Kind = iota

	// KindPrecondition: a required argument was nil. Never retried,
	// surfaced synchronously.
	KindPrecondition

	// KindEncode: the body encoder failed. Aborts the call before
	// dispatch.
	KindEncode

	// KindTransport: the transport failed to complete the round trip.
	KindTransport

	// KindAPI: the error decoder classified a non-success response.
	KindAPI

	// KindRetryExhausted: the retry policy declined further attempts.
	// Wraps the last attempt's failure.
	KindRetryExhausted
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindEncode:
		return "encode"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindRetryExhausted:
		return "retry exhausted"
	default:
		return "unknown"
	}
}

type ClientError struct {
	kind Kind
	code codes.Code
	err  error

	// httpStatus is the original response status for KindAPI errors
	// decoded from a response, 0 otherwise.
	httpStatus int
}

func (e *ClientError) Error() string {
	return e.err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.err
}

func (e *ClientError) Kind() Kind {
	return e.kind
}

func (e *ClientError) GRPCCode() codes.Code {
	return e.code
}

// HttpCode returns the HTTP status the error corresponds to: the original
// response status for decoded API errors, the conventional mapping of the
// gRPC code otherwise.
func (e *ClientError) HttpCode() int {
	if e.httpStatus != 0 {
		return e.httpStatus
	}
	return runtime.HTTPStatusFromCode(e.code)
}

// KindOf classifies any error, KindUnknown for errors produced outside
// this package.
func KindOf(err error) Kind {
	var ce *ClientError
	if stderrors.As(err, &ce) {
		return ce.kind
	}
	return KindUnknown
}

func makeError(kind Kind, code codes.Code, format string, a ...interface{}) *ClientError {
	return &ClientError{
		kind: kind,
		code: code,
		err:  fmt.Errorf(format, a...),
	}
}

// Precondition indicates a required argument was nil.
func Precondition(format string, a ...interface{}) *ClientError {
	return makeError(KindPrecondition, codes.InvalidArgument, format, a...)
}

// Encode wraps an encoder failure, preserving the cause.
func Encode(err error) *ClientError {
	return makeError(KindEncode, codes.Internal, "failed to encode request body: %w", err)
}

// Encodef creates an encoder failure from scratch, for encoders that
// signal this kind themselves.
func Encodef(format string, a ...interface{}) *ClientError {
	return makeError(KindEncode, codes.Internal, format, a...)
}

// Transport wraps a transport failure, preserving the cause.
func Transport(err error) *ClientError {
	return makeError(KindTransport, codes.Unavailable, "request failed: %w", err)
}

// API creates a decoded API error with an explicit code.
func API(code codes.Code, format string, a ...interface{}) *ClientError {
	return makeError(KindAPI, code, format, a...)
}

// FromHTTPStatus creates a decoded API error classified by the response
// status.
func FromHTTPStatus(status int, format string, a ...interface{}) *ClientError {
	err := makeError(KindAPI, CodeFromHTTPStatus(status), format, a...)
	err.httpStatus = status
	return err
}

// RetryExhausted wraps the last attempt's failure after the retry policy
// declined further attempts.
func RetryExhausted(attempts int, err error) *ClientError {
	return makeError(KindRetryExhausted, codes.Unavailable, "gave up after %d attempts: %w", attempts, err)
}

// CodeFromHTTPStatus is the inverse of runtime.HTTPStatusFromCode for the
// statuses remote APIs commonly return.
func CodeFromHTTPStatus(status int) codes.Code {
	switch status {
	case 400:
		return codes.InvalidArgument
	case 401:
		return codes.Unauthenticated
	case 403:
		return codes.PermissionDenied
	case 404:
		return codes.NotFound
	case 408:
		return codes.DeadlineExceeded
	case 409:
		return codes.Aborted
	case 412:
		return codes.FailedPrecondition
	case 416:
		return codes.OutOfRange
	case 429:
		return codes.ResourceExhausted
	case 499:
		return codes.Canceled
	case 500:
		return codes.Internal
	case 501:
		return codes.Unimplemented
	case 503:
		return codes.Unavailable
	case 504:
		return codes.DeadlineExceeded
	default:
		return codes.Unknown
	}
}
