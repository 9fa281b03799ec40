// Package efserr defines the error taxonomy shared by every EFLS component
// and maps it onto gRPC status codes at the RPC boundary.
package efserr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies one of the taxonomy's error classes.
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	FailedPrecondition
	NotFound
	DataLoss
	OutOfRange
	DeadlineExceeded
	Unavailable
	ResourceExhausted
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case FailedPrecondition:
		return "FailedPrecondition"
	case NotFound:
		return "NotFound"
	case DataLoss:
		return "DataLoss"
	case OutOfRange:
		return "OutOfRange"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case Unavailable:
		return "Unavailable"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried through the codebase above the
// gRPC boundary; it behaves like a normal Go error and unwraps to its kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, format, args...)
}

func FailedPreconditionf(format string, args ...any) *Error {
	return New(FailedPrecondition, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

func DataLossf(format string, args ...any) *Error {
	return New(DataLoss, format, args...)
}

func OutOfRangef(format string, args ...any) *Error {
	return New(OutOfRange, format, args...)
}

func DeadlineExceededf(format string, args ...any) *Error {
	return New(DeadlineExceeded, format, args...)
}

func Unavailablef(format string, args ...any) *Error {
	return New(Unavailable, format, args...)
}

func ResourceExhaustedf(format string, args ...any) *Error {
	return New(ResourceExhausted, format, args...)
}

func Internalf(format string, args ...any) *Error {
	return New(Internal, format, args...)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

func kindToCode(k Kind) codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case FailedPrecondition:
		return codes.FailedPrecondition
	case NotFound:
		return codes.NotFound
	case DataLoss:
		return codes.DataLoss
	case OutOfRange:
		return codes.OutOfRange
	case DeadlineExceeded:
		return codes.DeadlineExceeded
	case Unavailable:
		return codes.Unavailable
	case ResourceExhausted:
		return codes.ResourceExhausted
	case Internal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

func codeToKind(c codes.Code) Kind {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.FailedPrecondition:
		return FailedPrecondition
	case codes.NotFound:
		return NotFound
	case codes.DataLoss:
		return DataLoss
	case codes.OutOfRange:
		return OutOfRange
	case codes.DeadlineExceeded:
		return DeadlineExceeded
	case codes.Unavailable:
		return Unavailable
	case codes.ResourceExhausted:
		return ResourceExhausted
	case codes.Internal:
		return Internal
	default:
		return Unknown
	}
}

// ToStatus converts an error produced anywhere in the codebase into a gRPC
// status error suitable for returning from a service handler.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return status.Error(kindToCode(e.Kind), e.Msg)
	}
	return status.Error(codes.Unknown, err.Error())
}

// FromStatus converts a gRPC status error received by a client back into an
// *Error, preserving the taxonomy across the wire.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return New(Unknown, "%s", err.Error())
	}
	return New(codeToKind(st.Code()), "%s", st.Message())
}
