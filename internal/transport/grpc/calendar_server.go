package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/availability"
)

type CalendarServer struct {
	svc calendarService
	log *slog.Logger
}

type calendarService interface {
	ListAvailability(ctx context.Context) ([]domain.WeeklyAvailability, error)
	CreateAvailability(ctx context.Context, in availability.WindowInput) (domain.WeeklyAvailability, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, in availability.WindowInput) (domain.WeeklyAvailability, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error
	ListBlocks(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Block, error)
	CreateBlock(ctx context.Context, in availability.BlockInput) (domain.Block, error)
	UpdateBlock(ctx context.Context, id uuid.UUID, in availability.BlockInput) (domain.Block, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

func NewCalendarServer(svc calendarService, log *slog.Logger) *CalendarServer {
	if log == nil {
		log = slog.Default()
	}
	return &CalendarServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.calendar")),
	}
}

func (s *CalendarServer) ListAvailability(ctx context.Context, req *ListAvailabilityRequest) (*ListAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailability"))

	entries, err := s.svc.ListAvailability(ctx)
	if err != nil {
		return nil, toStatus(ctx, log, "availability list", err)
	}
	out := make([]*Availability, 0, len(entries))
	for _, a := range entries {
		out = append(out, toProtoAvailability(a))
	}
	return &ListAvailabilityResponse{Entries: out}, nil
}

func (s *CalendarServer) CreateAvailability(ctx context.Context, req *AvailabilityRequest) (*AvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateAvailability"))

	in, msg := windowInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "invalid_window", msg)
	}
	a, err := s.svc.CreateAvailability(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "availability create", err)
	}

	log.InfoContext(ctx, "availability created",
		slog.String("availability_id", a.ID.String()),
		slog.String("day_of_week", a.DayOfWeek.String()),
		slog.String("start_time", a.StartTime.String()),
		slog.String("end_time", a.EndTime.String()),
	)
	return &AvailabilityResponse{Entry: toProtoAvailability(a)}, nil
}

func (s *CalendarServer) UpdateAvailability(ctx context.Context, req *AvailabilityRequest) (*AvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateAvailability"))

	id, ok := parseID(req.ID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "id must be a UUID")
	}
	in, msg := windowInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "invalid_window", msg)
	}
	a, err := s.svc.UpdateAvailability(ctx, id, in)
	if err != nil {
		return nil, toStatus(ctx, log, "availability update", err, slog.String("availability_id", id.String()))
	}

	log.InfoContext(ctx, "availability updated", slog.String("availability_id", a.ID.String()))
	return &AvailabilityResponse{Entry: toProtoAvailability(a)}, nil
}

func (s *CalendarServer) DeleteAvailability(ctx context.Context, req *DeleteRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteAvailability"))

	id, ok := parseID(req.ID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "id must be a UUID")
	}
	if err := s.svc.DeleteAvailability(ctx, id); err != nil {
		return nil, toStatus(ctx, log, "availability delete", err, slog.String("availability_id", id.String()))
	}

	log.InfoContext(ctx, "availability deleted", slog.String("availability_id", id.String()))
	return &Empty{}, nil
}

func (s *CalendarServer) ListBlocks(ctx context.Context, req *ListBlocksRequest) (*ListBlocksResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBlocks"))

	windowStart, okStart := asTime(req.WindowStart)
	windowEnd, okEnd := asTime(req.WindowEnd)
	if !okStart || !okEnd {
		return nil, invalidArgument(ctx, log, "missing_window", "window_start and window_end are required")
	}
	blocks, err := s.svc.ListBlocks(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, toStatus(ctx, log, "blocks list", err)
	}
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toProtoBlock(b))
	}
	return &ListBlocksResponse{Blocks: out}, nil
}

func (s *CalendarServer) CreateBlock(ctx context.Context, req *BlockRequest) (*BlockResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBlock"))

	in, msg := blockInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "missing_times", msg)
	}
	b, err := s.svc.CreateBlock(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "block create", err,
			slog.Time("start_time", in.StartTime),
			slog.Time("end_time", in.EndTime),
		)
	}

	log.InfoContext(ctx, "block created",
		slog.String("block_id", b.ID.String()),
		slog.String("type", string(b.Type)),
		slog.Time("start_time", b.StartTime),
		slog.Time("end_time", b.EndTime),
	)
	return &BlockResponse{Block: toProtoBlock(b)}, nil
}

func (s *CalendarServer) UpdateBlock(ctx context.Context, req *BlockRequest) (*BlockResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBlock"))

	id, ok := parseID(req.ID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "id must be a UUID")
	}
	in, msg := blockInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "missing_times", msg)
	}
	b, err := s.svc.UpdateBlock(ctx, id, in)
	if err != nil {
		return nil, toStatus(ctx, log, "block update", err, slog.String("block_id", id.String()))
	}

	log.InfoContext(ctx, "block updated", slog.String("block_id", b.ID.String()))
	return &BlockResponse{Block: toProtoBlock(b)}, nil
}

func (s *CalendarServer) DeleteBlock(ctx context.Context, req *DeleteRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteBlock"))

	id, ok := parseID(req.ID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "id must be a UUID")
	}
	if err := s.svc.DeleteBlock(ctx, id); err != nil {
		return nil, toStatus(ctx, log, "block delete", err, slog.String("block_id", id.String()))
	}

	log.InfoContext(ctx, "block deleted", slog.String("block_id", id.String()))
	return &Empty{}, nil
}

func windowInput(req *AvailabilityRequest) (availability.WindowInput, string) {
	day, ok := parseWeekday(req.DayOfWeek)
	if !ok {
		return availability.WindowInput{}, "day_of_week must be between 0 (Sunday) and 6"
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return availability.WindowInput{}, "start_time must be HH:MM"
	}
	end, err := domain.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return availability.WindowInput{}, "end_time must be HH:MM"
	}
	return availability.WindowInput{DayOfWeek: day, StartTime: start, EndTime: end, Active: req.Active}, ""
}

func blockInput(req *BlockRequest) (availability.BlockInput, string) {
	start, okStart := asTime(req.StartTime)
	end, okEnd := asTime(req.EndTime)
	if !okStart || !okEnd {
		return availability.BlockInput{}, "start_time and end_time are required"
	}
	return availability.BlockInput{
		StartTime: start,
		EndTime:   end,
		Type:      domain.BlockType(strings.ToLower(strings.TrimSpace(req.Type))),
		Reason:    req.Reason,
	}, ""
}
