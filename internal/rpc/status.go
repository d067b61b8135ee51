package rpc

import (
	"errors"
	"io/fs"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/unitexe/skopos/internal/system"
)

// ToStatus converts an operation error into a gRPC status error
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch system.KindOf(err) {
	case system.KindMalformedInput:
		code = codes.InvalidArgument
	case system.KindResourceAccess:
		switch {
		case errors.Is(err, fs.ErrNotExist):
			code = codes.NotFound
		case errors.Is(err, fs.ErrPermission):
			code = codes.PermissionDenied
		}
	case system.KindTimeout:
		code = codes.DeadlineExceeded
	case system.KindCanceled:
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

// FromStatus turns a gRPC status error back into a typed error
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}

	var kind system.ErrorKind
	switch st.Code() {
	case codes.InvalidArgument:
		kind = system.KindMalformedInput
	case codes.NotFound, codes.PermissionDenied:
		kind = system.KindResourceAccess
	case codes.DeadlineExceeded:
		kind = system.KindTimeout
	case codes.Canceled:
		kind = system.KindCanceled
	default:
		return err
	}
	return system.NewError(kind, "", st.Message(), err)
}
