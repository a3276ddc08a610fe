package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/keygate/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrInvalidCredentials, codes.Unauthenticated},
	{common.ErrUnauthorized, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrHardwareMismatch, codes.PermissionDenied},
	{common.ErrForbidden, codes.PermissionDenied},
	{common.ErrUserNotFound, codes.NotFound},
	{common.ErrKeyNotFound, codes.NotFound},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrKeyAlreadyUsed, codes.FailedPrecondition},
	{common.ErrConflict, codes.AlreadyExists},
	{common.ErrInvalidArgument, codes.InvalidArgument},
	{common.ErrStoreUnavailable, codes.Unavailable},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// toStatus maps a service error onto a gRPC status. Domain errors keep their
// message, except store failures whose driver detail stays in the log.
// Anything unrecognised is reported as Internal without detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			if e.code == codes.Unavailable {
				return status.Error(e.code, e.err.Error())
			}
			return status.Error(e.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}
