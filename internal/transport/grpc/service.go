package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	BookingServiceName  = "agenda.v1.BookingService"
	CalendarServiceName = "agenda.v1.CalendarAdminService"
)

// BookingServiceServer is the patient and provider facing booking API.
type BookingServiceServer interface {
	GetDaySlots(context.Context, *GetDaySlotsRequest) (*GetDaySlotsResponse, error)
	GetRangeSlots(context.Context, *GetRangeSlotsRequest) (*GetRangeSlotsResponse, error)
	BookAppointment(context.Context, *BookAppointmentRequest) (*AppointmentResponse, error)
	AdminBookAppointment(context.Context, *AdminBookAppointmentRequest) (*AppointmentResponse, error)
	GetAppointment(context.Context, *GetAppointmentRequest) (*AppointmentResponse, error)
	RescheduleAppointment(context.Context, *RescheduleAppointmentRequest) (*AppointmentResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*AppointmentResponse, error)
	UpdateAppointmentStatus(context.Context, *UpdateAppointmentStatusRequest) (*AppointmentResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	CheckSeriesConflicts(context.Context, *SeriesRequest) (*CheckSeriesConflictsResponse, error)
	CreateSeries(context.Context, *SeriesRequest) (*CreateSeriesResponse, error)
	CancelSeries(context.Context, *CancelSeriesRequest) (*CancelSeriesResponse, error)
	CancelOccurrence(context.Context, *CancelOccurrenceRequest) (*AppointmentResponse, error)
	ListSeries(context.Context, *ListSeriesRequest) (*ListSeriesResponse, error)
	GetSeries(context.Context, *GetSeriesRequest) (*GetSeriesResponse, error)
}

// CalendarAdminServiceServer manages working hours and blocked periods.
type CalendarAdminServiceServer interface {
	ListAvailability(context.Context, *ListAvailabilityRequest) (*ListAvailabilityResponse, error)
	CreateAvailability(context.Context, *AvailabilityRequest) (*AvailabilityResponse, error)
	UpdateAvailability(context.Context, *AvailabilityRequest) (*AvailabilityResponse, error)
	DeleteAvailability(context.Context, *DeleteRequest) (*Empty, error)
	ListBlocks(context.Context, *ListBlocksRequest) (*ListBlocksResponse, error)
	CreateBlock(context.Context, *BlockRequest) (*BlockResponse, error)
	UpdateBlock(context.Context, *BlockRequest) (*BlockResponse, error)
	DeleteBlock(context.Context, *DeleteRequest) (*Empty, error)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(BookingServiceName, "GetDaySlots", BookingServiceServer.GetDaySlots),
		unary(BookingServiceName, "GetRangeSlots", BookingServiceServer.GetRangeSlots),
		unary(BookingServiceName, "BookAppointment", BookingServiceServer.BookAppointment),
		unary(BookingServiceName, "AdminBookAppointment", BookingServiceServer.AdminBookAppointment),
		unary(BookingServiceName, "GetAppointment", BookingServiceServer.GetAppointment),
		unary(BookingServiceName, "RescheduleAppointment", BookingServiceServer.RescheduleAppointment),
		unary(BookingServiceName, "CancelAppointment", BookingServiceServer.CancelAppointment),
		unary(BookingServiceName, "UpdateAppointmentStatus", BookingServiceServer.UpdateAppointmentStatus),
		unary(BookingServiceName, "ListAppointments", BookingServiceServer.ListAppointments),
		unary(BookingServiceName, "CheckSeriesConflicts", BookingServiceServer.CheckSeriesConflicts),
		unary(BookingServiceName, "CreateSeries", BookingServiceServer.CreateSeries),
		unary(BookingServiceName, "CancelSeries", BookingServiceServer.CancelSeries),
		unary(BookingServiceName, "CancelOccurrence", BookingServiceServer.CancelOccurrence),
		unary(BookingServiceName, "ListSeries", BookingServiceServer.ListSeries),
		unary(BookingServiceName, "GetSeries", BookingServiceServer.GetSeries),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agenda/v1/booking",
}

var calendarServiceDesc = grpc.ServiceDesc{
	ServiceName: CalendarServiceName,
	HandlerType: (*CalendarAdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CalendarServiceName, "ListAvailability", CalendarAdminServiceServer.ListAvailability),
		unary(CalendarServiceName, "CreateAvailability", CalendarAdminServiceServer.CreateAvailability),
		unary(CalendarServiceName, "UpdateAvailability", CalendarAdminServiceServer.UpdateAvailability),
		unary(CalendarServiceName, "DeleteAvailability", CalendarAdminServiceServer.DeleteAvailability),
		unary(CalendarServiceName, "ListBlocks", CalendarAdminServiceServer.ListBlocks),
		unary(CalendarServiceName, "CreateBlock", CalendarAdminServiceServer.CreateBlock),
		unary(CalendarServiceName, "UpdateBlock", CalendarAdminServiceServer.UpdateBlock),
		unary(CalendarServiceName, "DeleteBlock", CalendarAdminServiceServer.DeleteBlock),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agenda/v1/calendar",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

func RegisterCalendarAdminServiceServer(s grpc.ServiceRegistrar, srv CalendarAdminServiceServer) {
	s.RegisterService(&calendarServiceDesc, srv)
}

// FullMethod returns the invocation path of method on service.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// unary adapts a typed server method to grpc's untyped method handler.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}
