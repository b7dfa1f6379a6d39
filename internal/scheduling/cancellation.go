package scheduling

import (
	"time"

	"agenda/backend/internal/domain"
)

// IsCancellable reports whether the appointment may still be cancelled or
// rescheduled by the patient.
func IsCancellable(a domain.Appointment) bool {
	return a.Status == domain.StatusScheduled || a.Status == domain.StatusConfirmed
}

// IsWithinFreeWindow reports whether now is strictly earlier than window
// before start.
func IsWithinFreeWindow(start, now time.Time, window time.Duration) bool {
	return now.Add(window).Before(start)
}

// CancellationOutcome returns the status a patient cancellation moves the
// appointment to: cancelled when on time, cancelled_late otherwise.
func (p Policy) CancellationOutcome(a domain.Appointment, now time.Time) (domain.AppointmentStatus, Decision) {
	if !IsCancellable(a) {
		return a.Status, reject(KindNotCancellable, "")
	}
	if IsWithinFreeWindow(a.StartTime, now, p.CancellationWindow) {
		return domain.StatusCancelled, Decision{}
	}
	return domain.StatusCancelledLate, Decision{}
}

// CanReschedule requires a cancellable appointment inside the free window.
func (p Policy) CanReschedule(a domain.Appointment, now time.Time) Decision {
	if !IsCancellable(a) {
		return reject(KindNotCancellable, "")
	}
	if !IsWithinFreeWindow(a.StartTime, now, p.CancellationWindow) {
		return reject(KindCancellationWindowExpired, "")
	}
	return Decision{}
}
