package client

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrKeyAlreadyUsed  = errors.New("activation key already used")
	ErrRateLimited     = errors.New("too many requests")
)

var codeErrors = map[codes.Code]error{
	codes.Unavailable:        ErrUnavailable,
	codes.DeadlineExceeded:   ErrUnavailable,
	codes.Unauthenticated:    ErrUnauthorized,
	codes.PermissionDenied:   ErrForbidden,
	codes.NotFound:           ErrNotFound,
	codes.AlreadyExists:      ErrConflict,
	codes.InvalidArgument:    ErrInvalidArgument,
	codes.FailedPrecondition: ErrKeyAlreadyUsed,
	codes.ResourceExhausted:  ErrRateLimited,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	if sentinel, ok := codeErrors[st.Code()]; ok {
		return fmt.Errorf("%w: %s", sentinel, st.Message())
	}
	return fmt.Errorf("rpc error: %w", err)
}
