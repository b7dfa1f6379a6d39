package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

// Mondays: 2024-01-01 is "now", 2024-01-08 holds the bookings.
var (
	testNow = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	jan8    = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
)

func at(h, m int) time.Time {
	return jan8.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fixture struct {
	cal      *memCalendar
	notifier *fakeNotifier
	slots    *fakeInvalidator
	clock    time.Time
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		cal:      newMemCalendar(),
		notifier: &fakeNotifier{},
		slots:    &fakeInvalidator{},
		clock:    testNow,
	}
	f.cal.open(time.Monday, domain.MustTimeOfDay(8, 0), domain.MustTimeOfDay(18, 0))

	policy := scheduling.DefaultPolicy()
	policy.Location = time.UTC
	f.svc = NewService(f.cal, policy,
		WithNotifier(f.notifier),
		WithSlotInvalidator(f.slots),
		WithClock(func() time.Time { return f.clock }),
	)
	return f
}

func bookInput(start time.Time) BookInput {
	return BookInput{
		PatientRef:      "patient-1",
		SessionTypeRef:  "individual",
		DurationMinutes: 50,
		StartTime:       start,
	}
}

func wantConflict(t *testing.T, err error, kind scheduling.Kind) *ConflictError {
	t.Helper()
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v (%T), want *ConflictError", err, err)
	}
	if cErr.Kind != kind {
		t.Fatalf("Kind = %q, want %q", cErr.Kind, kind)
	}
	return cErr
}

func TestServiceBook_ValidationErrorType(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		in   BookInput
		want string
	}{
		{name: "patient", in: BookInput{SessionTypeRef: "x", DurationMinutes: 50, StartTime: at(10, 0)}, want: "patient_ref is required"},
		{name: "session type", in: BookInput{PatientRef: "p", DurationMinutes: 50, StartTime: at(10, 0)}, want: "session_type_ref is required"},
		{name: "duration", in: BookInput{PatientRef: "p", SessionTypeRef: "x", StartTime: at(10, 0)}, want: "duration_minutes must be positive"},
		{name: "start", in: BookInput{PatientRef: "p", SessionTypeRef: "x", DurationMinutes: 50}, want: "start_time is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(context.Background(), tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if vErr.Error() != tt.want {
				t.Fatalf("error = %q, want %q", vErr.Error(), tt.want)
			}
		})
	}
}

func TestServiceBook_CreatesConfirmedAppointment(t *testing.T) {
	f := newFixture()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	appt, err := f.svc.Book(context.Background(), bookInput(at(10, 0).In(loc)))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if appt.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", appt.Status)
	}
	if appt.StartTime.Location() != time.UTC {
		t.Fatalf("start not normalized to UTC: %v", appt.StartTime)
	}
	if !appt.EndTime.Equal(at(10, 50)) {
		t.Fatalf("end = %v, want %v", appt.EndTime, at(10, 50))
	}
	if appt.CancellationToken == "" {
		t.Fatalf("expected cancellation token")
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].trigger != domain.TriggerBookingConfirmation {
		t.Fatalf("notifications = %+v", f.notifier.sent)
	}
	if len(f.slots.dates) != 1 || f.slots.dates[0].String() != "2024-01-08" {
		t.Fatalf("invalidated = %v", f.slots.dates)
	}
}

func TestServiceBook_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		start time.Time
		want  scheduling.Kind
	}{
		{name: "too soon", start: testNow.Add(time.Hour), want: scheduling.KindOutOfWindow},
		{name: "too far", start: at(10, 0).AddDate(0, 0, 91), want: scheduling.KindOutOfWindow},
		{name: "outside hours", start: at(17, 30), want: scheduling.KindOutsideAvailability},
		{
			name:  "overlapping appointment",
			setup: func(f *fixture) { f.cal.put(domain.Appointment{StartTime: at(10, 30), EndTime: at(11, 20)}) },
			start: at(10, 0),
			want:  scheduling.KindSlotConflict,
		},
		{
			name:  "blocked",
			setup: func(f *fixture) { f.cal.block(at(0, 0), at(23, 59)) },
			start: at(10, 0),
			want:  scheduling.KindBlockConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.svc.Book(context.Background(), bookInput(tt.start))
			wantConflict(t, err, tt.want)
			if len(f.notifier.sent) != 0 {
				t.Fatalf("rejected booking must not notify")
			}
		})
	}
}

func TestServiceBook_BackToBackAllowed(t *testing.T) {
	f := newFixture()
	f.cal.put(domain.Appointment{StartTime: at(9, 0), EndTime: at(10, 0)})
	f.cal.put(domain.Appointment{StartTime: at(10, 50), EndTime: at(11, 40)})

	if _, err := f.svc.Book(context.Background(), bookInput(at(10, 0))); err != nil {
		t.Fatalf("Book error: %v", err)
	}
}

func TestServiceBook_IdempotencyKeyDeterministicUUID(t *testing.T) {
	f := newFixture()
	in := bookInput(at(10, 0))
	in.IdempotencyKey = "  retry-1  "

	first, err := f.svc.Book(context.Background(), in)
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	want := uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda:book_appointment:patient-1:retry-1"))
	if first.ID != want {
		t.Fatalf("id = %s, want %s", first.ID, want)
	}

	second, err := f.svc.Book(context.Background(), in)
	if err != nil {
		t.Fatalf("replayed Book error: %v", err)
	}
	if second.ID != first.ID || second.CancellationToken != first.CancellationToken {
		t.Fatalf("replay returned a different appointment")
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("replay must not notify again, sent = %d", len(f.notifier.sent))
	}

	in.StartTime = at(14, 0)
	_, err = f.svc.Book(context.Background(), in)
	if !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("error = %v, want ErrIdempotencyConflict", err)
	}

	in.IdempotencyKey = string(make([]byte, 257))
	_, err = f.svc.Book(context.Background(), in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestServiceBook_StoreConflictBecomesSlotConflict(t *testing.T) {
	f := newFixture()
	f.cal.createFn = func(domain.Appointment) error { return store.ErrConflict }

	_, err := f.svc.Book(context.Background(), bookInput(at(10, 0)))
	wantConflict(t, err, scheduling.KindSlotConflict)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error should wrap store.ErrConflict")
	}
}

func TestServiceAdminBook(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.AdminBook(context.Background(), AdminBookInput{
		PatientRef:      "patient-1",
		SessionTypeRef:  "individual",
		DurationMinutes: 60,
		StartTime:       at(20, 0),
		SessionLink:     " https://meet.example/abc ",
	})
	if err != nil {
		t.Fatalf("AdminBook outside hours error: %v", err)
	}
	if appt.Status != domain.StatusScheduled || appt.SessionLink != "https://meet.example/abc" {
		t.Fatalf("appt = %+v", appt)
	}

	_, err = f.svc.AdminBook(context.Background(), AdminBookInput{
		PatientRef:      "patient-2",
		SessionTypeRef:  "individual",
		DurationMinutes: 60,
		StartTime:       at(20, 30),
	})
	wantConflict(t, err, scheduling.KindSlotConflict)

	_, err = f.svc.AdminBook(context.Background(), AdminBookInput{
		PatientRef:      "patient-2",
		SessionTypeRef:  "individual",
		DurationMinutes: 60,
		StartTime:       at(8, 0),
		Status:          domain.StatusCancelled,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestServiceAdminBook_InvalidatesEveryCoveredDate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  []string
	}{
		{name: "crosses midnight", start: at(23, 30), want: []string{"2024-01-08", "2024-01-09"}},
		{name: "ends at midnight", start: at(23, 0), want: []string{"2024-01-08"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if _, err := f.svc.AdminBook(context.Background(), AdminBookInput{
				PatientRef:      "patient-1",
				SessionTypeRef:  "individual",
				DurationMinutes: 60,
				StartTime:       tt.start,
			}); err != nil {
				t.Fatalf("AdminBook error: %v", err)
			}
			if len(f.slots.dates) != len(tt.want) {
				t.Fatalf("invalidated = %v, want %v", f.slots.dates, tt.want)
			}
			for i, d := range f.slots.dates {
				if d.String() != tt.want[i] {
					t.Fatalf("invalidated = %v, want %v", f.slots.dates, tt.want)
				}
			}
		})
	}
}

func TestServiceCancelByToken(t *testing.T) {
	tests := []struct {
		name       string
		clock      time.Time
		status     domain.AppointmentStatus
		wantStatus domain.AppointmentStatus
		wantKind   scheduling.Kind
	}{
		{name: "on time", clock: at(10, 0).Add(-48 * time.Hour), status: domain.StatusConfirmed, wantStatus: domain.StatusCancelled},
		{name: "late", clock: at(10, 0).Add(-3 * time.Hour), status: domain.StatusScheduled, wantStatus: domain.StatusCancelledLate},
		{name: "already cancelled", clock: testNow, status: domain.StatusCancelled, wantKind: scheduling.KindNotCancellable},
		{name: "attended", clock: testNow, status: domain.StatusAttended, wantKind: scheduling.KindNotCancellable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.clock = tt.clock
			a := f.cal.put(domain.Appointment{StartTime: at(10, 0), EndTime: at(10, 50), Status: tt.status})

			got, err := f.svc.CancelByToken(context.Background(), a.CancellationToken, " changed plans ")
			if tt.wantKind != "" {
				wantConflict(t, err, tt.wantKind)
				return
			}
			if err != nil {
				t.Fatalf("CancelByToken error: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.CancelledAt == nil || got.CancelledBy != "patient" || got.CancellationReason != "changed plans" {
				t.Fatalf("cancellation fields = %v %q %q", got.CancelledAt, got.CancelledBy, got.CancellationReason)
			}
			if len(f.notifier.sent) != 1 || f.notifier.sent[0].trigger != domain.TriggerCancellation {
				t.Fatalf("notifications = %+v", f.notifier.sent)
			}
		})
	}

	f := newFixture()
	if _, err := f.svc.CancelByToken(context.Background(), "unknown", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestServiceReschedule(t *testing.T) {
	f := newFixture()
	a := f.cal.put(domain.Appointment{PatientRef: "p", StartTime: at(10, 0), EndTime: at(10, 50)})

	moved, err := f.svc.Reschedule(context.Background(), a.CancellationToken, at(10, 30))
	if err != nil {
		t.Fatalf("Reschedule onto own range error: %v", err)
	}
	if !moved.StartTime.Equal(at(10, 30)) || !moved.EndTime.Equal(at(11, 20)) {
		t.Fatalf("moved = %v..%v", moved.StartTime, moved.EndTime)
	}
	if moved.CancellationToken == a.CancellationToken {
		t.Fatalf("reschedule must issue a new token")
	}
	if _, err := f.svc.GetByToken(context.Background(), a.CancellationToken); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("old token should be invalid, err = %v", err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].trigger != domain.TriggerReschedule {
		t.Fatalf("notifications = %+v", f.notifier.sent)
	}

	next := at(10, 0).AddDate(0, 0, 7)
	if _, err := f.svc.Reschedule(context.Background(), moved.CancellationToken, next); err != nil {
		t.Fatalf("Reschedule to next week error: %v", err)
	}
	if len(f.slots.dates) != 3 {
		t.Fatalf("invalidated dates = %v, want 3 entries", f.slots.dates)
	}
}

func TestServiceReschedule_Rejections(t *testing.T) {
	f := newFixture()
	a := f.cal.put(domain.Appointment{PatientRef: "p", StartTime: at(10, 0), EndTime: at(10, 50)})
	f.cal.put(domain.Appointment{PatientRef: "q", StartTime: at(14, 0), EndTime: at(14, 50)})

	_, err := f.svc.Reschedule(context.Background(), a.CancellationToken, at(14, 15))
	wantConflict(t, err, scheduling.KindSlotConflict)

	_, err = f.svc.Reschedule(context.Background(), a.CancellationToken, at(19, 0))
	wantConflict(t, err, scheduling.KindOutsideAvailability)

	f.clock = at(10, 0).Add(-23 * time.Hour)
	_, err = f.svc.Reschedule(context.Background(), a.CancellationToken, at(15, 0))
	wantConflict(t, err, scheduling.KindCancellationWindowExpired)
}

func TestServiceUpdateStatus(t *testing.T) {
	f := newFixture()
	a := f.cal.put(domain.Appointment{StartTime: at(10, 0), EndTime: at(10, 50)})

	got, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusUpdate{Status: domain.StatusCancelled, Reason: "provider sick"})
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if got.CancelledBy != "admin" || got.CancellationReason != "provider sick" {
		t.Fatalf("got = %+v", got)
	}

	f.cal.put(domain.Appointment{StartTime: at(10, 0), EndTime: at(10, 50)})
	_, err = f.svc.UpdateStatus(context.Background(), a.ID, StatusUpdate{Status: domain.StatusScheduled})
	wantConflict(t, err, scheduling.KindSlotConflict)

	_, err = f.svc.UpdateStatus(context.Background(), a.ID, StatusUpdate{Status: "lost"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}

	b := f.cal.put(domain.Appointment{StartTime: at(12, 0), EndTime: at(12, 50)})
	link := "https://meet.example/x"
	got, err = f.svc.UpdateStatus(context.Background(), b.ID, StatusUpdate{Status: domain.StatusAttended, SessionLink: &link})
	if err != nil {
		t.Fatalf("UpdateStatus attended error: %v", err)
	}
	if got.Status != domain.StatusAttended || got.SessionLink != link {
		t.Fatalf("got = %+v", got)
	}
}

func TestServiceList(t *testing.T) {
	f := newFixture()
	f.cal.put(domain.Appointment{StartTime: at(10, 0), EndTime: at(10, 50)})
	f.cal.put(domain.Appointment{StartTime: at(11, 0), EndTime: at(11, 50), Status: domain.StatusCancelled})

	active, err := f.svc.List(context.Background(), at(0, 0), at(23, 0), false)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}
	all, err := f.svc.List(context.Background(), at(0, 0), at(23, 0), true)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if _, err := f.svc.List(context.Background(), at(10, 0), at(10, 0), false); err == nil {
		t.Fatalf("expected validation error for empty window")
	}
}
