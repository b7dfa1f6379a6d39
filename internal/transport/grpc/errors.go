package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/service/appointments"
	"agenda/backend/internal/service/availability"
	"agenda/backend/internal/store"
)

func invalidArgument(ctx context.Context, log *slog.Logger, reason, msg string) error {
	log.WarnContext(ctx, "invalid request", slog.String("reason", reason))
	return status.Error(codes.InvalidArgument, msg)
}

// toStatus maps a service error to a gRPC status and logs it at the level
// its class calls for. op names the failed operation in log messages.
func toStatus(ctx context.Context, log *slog.Logger, op string, err error, attrs ...any) error {
	var (
		apptInvalid  *appointments.ValidationError
		availInvalid *availability.ValidationError
		conflict     *appointments.ConflictError
	)
	switch {
	case errors.As(err, &apptInvalid):
		log.WarnContext(ctx, "invalid request", append(attrs, slog.Any("err", err))...)
		return status.Error(codes.InvalidArgument, apptInvalid.Error())
	case errors.As(err, &availInvalid):
		log.WarnContext(ctx, "invalid request", append(attrs, slog.Any("err", err))...)
		return status.Error(codes.InvalidArgument, availInvalid.Error())
	case errors.As(err, &conflict):
		log.InfoContext(ctx, op+" refused", append(attrs, slog.String("kind", string(conflict.Kind)), slog.String("reason", conflict.Message))...)
		if conflict.Kind == scheduling.KindInvalidRange {
			return status.Error(codes.InvalidArgument, conflict.Message)
		}
		return status.Error(codes.FailedPrecondition, conflict.Message)
	case errors.Is(err, store.ErrNotFound):
		log.InfoContext(ctx, op+" target not found", attrs...)
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.InfoContext(ctx, op+" idempotency conflict", attrs...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, availability.ErrBlockOverlapsAppointments):
		log.InfoContext(ctx, op+" conflict", attrs...)
		return status.Error(codes.FailedPrecondition, "There are appointments in that period. Cancel or move them first.")
	case errors.Is(err, store.ErrConflict):
		log.InfoContext(ctx, op+" conflict", attrs...)
		return status.Error(codes.FailedPrecondition, "That time is no longer available. Pick a different slot.")
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, op+" timed out", attrs...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}
	log.ErrorContext(ctx, op+" failed", append(attrs, slog.Any("err", err))...)
	return status.Error(codes.Internal, "internal error")
}
