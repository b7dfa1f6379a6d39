package grpc

type Empty struct{}

type Slot struct {
	Time      string     `json:"time"`
	StartTime *Timestamp `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
	Available bool       `json:"available"`
}

type GetDaySlotsRequest struct {
	Date            string `json:"date"`
	DurationMinutes int32  `json:"duration_minutes"`
}

type GetDaySlotsResponse struct {
	Date  string  `json:"date"`
	Slots []*Slot `json:"slots"`
}

type GetRangeSlotsRequest struct {
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	DurationMinutes int32  `json:"duration_minutes"`
}

type GetRangeSlotsResponse struct {
	Days []*GetDaySlotsResponse `json:"days"`
}

type Appointment struct {
	ID                 string     `json:"id"`
	PatientRef         string     `json:"patient_ref"`
	SessionTypeRef     string     `json:"session_type_ref"`
	DurationMinutes    int32      `json:"duration_minutes"`
	StartTime          *Timestamp `json:"start_time"`
	EndTime            *Timestamp `json:"end_time"`
	Status             string     `json:"status"`
	SeriesID           string     `json:"series_id,omitempty"`
	CancellationToken  string     `json:"cancellation_token"`
	SessionLink        string     `json:"session_link,omitempty"`
	CancelledAt        *Timestamp `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          *Timestamp `json:"created_at"`
	UpdatedAt          *Timestamp `json:"updated_at"`
}

type AppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type BookAppointmentRequest struct {
	PatientRef      string     `json:"patient_ref"`
	SessionTypeRef  string     `json:"session_type_ref"`
	DurationMinutes int32      `json:"duration_minutes"`
	StartTime       *Timestamp `json:"start_time"`
}

type AdminBookAppointmentRequest struct {
	PatientRef      string     `json:"patient_ref"`
	SessionTypeRef  string     `json:"session_type_ref"`
	DurationMinutes int32      `json:"duration_minutes"`
	StartTime       *Timestamp `json:"start_time"`
	Status          string     `json:"status"`
	SessionLink     string     `json:"session_link"`
}

type GetAppointmentRequest struct {
	CancellationToken string `json:"cancellation_token"`
}

type RescheduleAppointmentRequest struct {
	CancellationToken string     `json:"cancellation_token"`
	StartTime         *Timestamp `json:"start_time"`
}

type CancelAppointmentRequest struct {
	CancellationToken string `json:"cancellation_token"`
	Reason            string `json:"reason"`
}

type UpdateAppointmentStatusRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Status        string  `json:"status"`
	Reason        string  `json:"reason"`
	SessionLink   *string `json:"session_link,omitempty"`
}

type ListAppointmentsRequest struct {
	WindowStart      *Timestamp `json:"window_start"`
	WindowEnd        *Timestamp `json:"window_end"`
	IncludeCancelled bool       `json:"include_cancelled"`
}

type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
}

// SeriesRequest describes a recurring series. DayOfWeek counts from Sunday=0;
// dates are YYYY-MM-DD and StartTime is HH:MM in the provider's time zone.
type SeriesRequest struct {
	PatientRef      string `json:"patient_ref"`
	SessionTypeRef  string `json:"session_type_ref"`
	DurationMinutes int32  `json:"duration_minutes"`
	DayOfWeek       int32  `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	Frequency       string `json:"frequency"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
}

type Occurrence struct {
	StartTime *Timestamp `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
}

type OccurrenceConflict struct {
	Index     int32      `json:"index"`
	StartTime *Timestamp `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
	Kind      string     `json:"kind"`
	Reason    string     `json:"reason"`
}

type CheckSeriesConflictsResponse struct {
	Total         int32                 `json:"total"`
	HasConflicts  bool                  `json:"has_conflicts"`
	ConflictCount int32                 `json:"conflict_count"`
	Occurrences   []*Occurrence         `json:"occurrences"`
	Conflicts     []*OccurrenceConflict `json:"conflicts"`
}

type RecurringSeries struct {
	ID              string `json:"id"`
	PatientRef      string `json:"patient_ref"`
	SessionTypeRef  string `json:"session_type_ref"`
	DurationMinutes int32  `json:"duration_minutes"`
	DayOfWeek       int32  `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	Frequency       string `json:"frequency"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
	Active          bool   `json:"active"`
}

type CreateSeriesResponse struct {
	Series       *RecurringSeries `json:"series"`
	Appointments []*Appointment   `json:"appointments"`
}

type CancelSeriesRequest struct {
	SeriesID string `json:"series_id"`
	Reason   string `json:"reason"`
}

type CancelSeriesResponse struct {
	CancelledCount int32 `json:"cancelled_count"`
}

type ListSeriesRequest struct {
	ActiveOnly bool `json:"active_only"`
}

type ListSeriesResponse struct {
	Series []*RecurringSeries `json:"series"`
}

type GetSeriesRequest struct {
	SeriesID string `json:"series_id"`
}

// GetSeriesResponse lists every occurrence of the series in start order,
// cancelled ones included.
type GetSeriesResponse struct {
	Series       *RecurringSeries `json:"series"`
	Appointments []*Appointment   `json:"appointments"`
}

type CancelOccurrenceRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type Availability struct {
	ID        string `json:"id"`
	DayOfWeek int32  `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    bool   `json:"active"`
}

type ListAvailabilityRequest struct{}

type ListAvailabilityResponse struct {
	Entries []*Availability `json:"entries"`
}

// AvailabilityRequest creates an entry, or replaces the one named by ID.
type AvailabilityRequest struct {
	ID        string `json:"id,omitempty"`
	DayOfWeek int32  `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    *bool  `json:"active,omitempty"`
}

type AvailabilityResponse struct {
	Entry *Availability `json:"entry"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type Block struct {
	ID        string     `json:"id"`
	StartTime *Timestamp `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
	Type      string     `json:"type"`
	Reason    string     `json:"reason,omitempty"`
}

type ListBlocksRequest struct {
	WindowStart *Timestamp `json:"window_start"`
	WindowEnd   *Timestamp `json:"window_end"`
}

type ListBlocksResponse struct {
	Blocks []*Block `json:"blocks"`
}

// BlockRequest creates a block, or replaces the one named by ID.
type BlockRequest struct {
	ID        string     `json:"id,omitempty"`
	StartTime *Timestamp `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
	Type      string     `json:"type"`
	Reason    string     `json:"reason"`
}

type BlockResponse struct {
	Block *Block `json:"block"`
}
