package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/conversation"
	"github.com/popspot/popchat/internal/push"
	"github.com/popspot/popchat/internal/store"
)

// toStatus maps a domain error to a gRPC status error.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	return grpcstatus.Errorf(codeOf(err), "%s: %v", op, err)
}

func codeOf(err error) codes.Code {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, conversation.ErrNoRoom):
		return codes.FailedPrecondition
	case errors.Is(err, store.ErrUploadNotFound):
		return codes.NotFound
	case errors.Is(err, push.ErrClosed):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusBadRequest:
			return codes.InvalidArgument
		case http.StatusUnauthorized:
			return codes.Unauthenticated
		case http.StatusForbidden:
			return codes.PermissionDenied
		case http.StatusNotFound:
			return codes.NotFound
		case http.StatusConflict:
			return codes.AlreadyExists
		}
		return codes.Unavailable
	}
	return codes.Internal
}

func invalid(format string, args ...any) error {
	return grpcstatus.Errorf(codes.InvalidArgument, format, args...)
}
