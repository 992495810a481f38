package grpcserver

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/and161185/scoutfund/internal/errs"
)

// ErrorDomain is the ErrorInfo domain attached to every mapped error.
const ErrorDomain = "scoutfund"

var kindCodes = map[errs.Kind]codes.Code{
	errs.KindNotFound:          codes.NotFound,
	errs.KindForbidden:         codes.PermissionDenied,
	errs.KindConflict:          codes.Aborted,
	errs.KindInvalidInput:      codes.InvalidArgument,
	errs.KindTransient:         codes.Unavailable,
	errs.KindCascadeIncomplete: codes.FailedPrecondition,
	errs.KindUnauthenticated:   codes.Unauthenticated,
	errs.KindRateLimited:       codes.ResourceExhausted,
}

// toStatus maps a service error onto a gRPC status with errdetails.ErrorInfo.
// Only the structured message reaches the caller; causes stay in the logs.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal")
	}
	code, ok := kindCodes[e.Kind]
	if !ok {
		return status.Error(codes.Internal, "internal")
	}
	if e.Code == errs.CodeAlreadyExists {
		code = codes.AlreadyExists
	}

	reason := string(e.Code)
	if reason == "" {
		reason = string(e.Kind)
	}
	details := []protoadapt.MessageV1{&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: e.Metadata,
	}}
	if ra, perr := time.ParseDuration(e.Metadata["retry_after"]); perr == nil {
		details = append(details, &errdetails.RetryInfo{RetryDelay: durationpb.New(ra)})
	}

	st, derr := status.New(code, e.Message).WithDetails(details...)
	if derr != nil {
		return status.Error(code, e.Message)
	}
	return st.Err()
}

// ErrorInfo extracts the ErrorInfo detail from a status error, if any.
func ErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info, true
		}
	}
	return nil, false
}
