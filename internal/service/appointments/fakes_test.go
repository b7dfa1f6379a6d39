package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

// memCalendar is an in-memory calendar. Transactions run against a copy that
// replaces the committed state only when fn succeeds.
type memCalendar struct {
	mu    sync.Mutex
	state memState

	createFn func(appt domain.Appointment) error
}

type memState struct {
	availability []domain.WeeklyAvailability
	blocks       []domain.Block
	appointments map[uuid.UUID]domain.Appointment
	series       map[uuid.UUID]domain.RecurringSeries
}

func newMemCalendar() *memCalendar {
	return &memCalendar{state: memState{
		appointments: map[uuid.UUID]domain.Appointment{},
		series:       map[uuid.UUID]domain.RecurringSeries{},
	}}
}

func (s memState) clone() memState {
	out := memState{
		availability: append([]domain.WeeklyAvailability(nil), s.availability...),
		blocks:       append([]domain.Block(nil), s.blocks...),
		appointments: make(map[uuid.UUID]domain.Appointment, len(s.appointments)),
		series:       make(map[uuid.UUID]domain.RecurringSeries, len(s.series)),
	}
	for k, v := range s.appointments {
		out.appointments[k] = v
	}
	for k, v := range s.series {
		out.series[k] = v
	}
	return out
}

func (m *memCalendar) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	working := m.state.clone()
	if err := fn(ctx, &memTx{st: &working, createFn: m.createFn}); err != nil {
		return err
	}
	m.state = working
	return nil
}

func (m *memCalendar) FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error) {
	return m.state.findActiveAvailability(day), nil
}

func (m *memCalendar) FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error) {
	return m.state.findBlocks(iv), nil
}

func (m *memCalendar) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	return m.state.existsOverlap(iv, excludeID), nil
}

func (m *memCalendar) FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error) {
	return m.state.activeInRange(iv), nil
}

func (m *memCalendar) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time, includeCancelled bool) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range m.state.sorted() {
		if !a.Interval().Overlaps(domain.TimeInterval{Start: windowStart, End: windowEnd}) {
			continue
		}
		if !includeCancelled && !a.IsActive() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memCalendar) GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error) {
	return m.state.byToken(token)
}

func (m *memCalendar) ListSeriesAppointments(ctx context.Context, seriesID uuid.UUID) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range m.state.sorted() {
		if a.SeriesID != nil && *a.SeriesID == seriesID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCalendar) ListRecurringSeries(ctx context.Context, activeOnly bool) ([]domain.RecurringSeries, error) {
	var out []domain.RecurringSeries
	for _, s := range m.state.series {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *memCalendar) GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error) {
	s, ok := m.state.series[id]
	if !ok {
		return domain.RecurringSeries{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memCalendar) open(day time.Weekday, from, to domain.TimeOfDay) {
	m.state.availability = append(m.state.availability, domain.WeeklyAvailability{
		ID: uuid.New(), DayOfWeek: day, StartTime: from, EndTime: to, Active: true,
	})
}

func (m *memCalendar) put(a domain.Appointment) domain.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CancellationToken == "" {
		a.CancellationToken = domain.NewCancellationToken()
	}
	if a.Status == "" {
		a.Status = domain.StatusConfirmed
	}
	m.state.appointments[a.ID] = a
	return a
}

func (m *memCalendar) block(start, end time.Time) {
	m.state.blocks = append(m.state.blocks, domain.Block{ID: uuid.New(), StartTime: start, EndTime: end, Type: domain.BlockTypeOther})
}

func (s *memState) findActiveAvailability(day time.Weekday) []domain.WeeklyAvailability {
	var out []domain.WeeklyAvailability
	for _, a := range s.availability {
		if a.Active && a.DayOfWeek == day {
			out = append(out, a)
		}
	}
	return out
}

func (s *memState) findBlocks(iv domain.TimeInterval) []domain.Block {
	var out []domain.Block
	for _, b := range s.blocks {
		if b.Interval().Overlaps(iv) {
			out = append(out, b)
		}
	}
	return out
}

func (s *memState) existsOverlap(iv domain.TimeInterval, excludeID uuid.UUID) bool {
	for _, a := range s.appointments {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if a.IsActive() && a.Interval().Overlaps(iv) {
			return true
		}
	}
	return false
}

func (s *memState) activeInRange(iv domain.TimeInterval) []domain.Appointment {
	var out []domain.Appointment
	for _, a := range s.sorted() {
		if a.IsActive() && a.Interval().Overlaps(iv) {
			out = append(out, a)
		}
	}
	return out
}

func (s *memState) sorted() []domain.Appointment {
	out := make([]domain.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *memState) byToken(token string) (domain.Appointment, error) {
	for _, a := range s.appointments {
		if a.CancellationToken == token {
			return a, nil
		}
	}
	return domain.Appointment{}, store.ErrNotFound
}

type memTx struct {
	st       *memState
	createFn func(appt domain.Appointment) error
}

func (t *memTx) FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error) {
	return t.st.findActiveAvailability(day), nil
}

func (t *memTx) FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error) {
	return t.st.findBlocks(iv), nil
}

func (t *memTx) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	return t.st.existsOverlap(iv, excludeID), nil
}

func (t *memTx) FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error) {
	return t.st.activeInRange(iv), nil
}

func (t *memTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if t.createFn != nil {
		if err := t.createFn(appt); err != nil {
			return domain.Appointment{}, err
		}
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.IsActive() && t.st.existsOverlap(appt.Interval(), uuid.Nil) {
		return domain.Appointment{}, store.ErrConflict
	}
	t.st.appointments[appt.ID] = appt
	return appt, nil
}

func (t *memTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := t.st.appointments[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (t *memTx) GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error) {
	return t.st.byToken(token)
}

func (t *memTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if _, ok := t.st.appointments[appt.ID]; !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	if appt.IsActive() && t.st.existsOverlap(appt.Interval(), appt.ID) {
		return domain.Appointment{}, store.ErrConflict
	}
	t.st.appointments[appt.ID] = appt
	return appt, nil
}

func (t *memTx) ListActiveSeriesAppointments(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range t.st.sorted() {
		if a.SeriesID != nil && *a.SeriesID == seriesID && a.IsActive() && a.StartTime.After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) CreateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error) {
	if series.ID == uuid.Nil {
		series.ID = uuid.New()
	}
	t.st.series[series.ID] = series
	return series, nil
}

func (t *memTx) GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error) {
	s, ok := t.st.series[id]
	if !ok {
		return domain.RecurringSeries{}, store.ErrNotFound
	}
	return s, nil
}

func (t *memTx) UpdateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error) {
	if _, ok := t.st.series[series.ID]; !ok {
		return domain.RecurringSeries{}, store.ErrNotFound
	}
	t.st.series[series.ID] = series
	return series, nil
}

func (t *memTx) CreateBlock(ctx context.Context, block domain.Block) (domain.Block, error) {
	panic("CreateBlock not configured")
}

func (t *memTx) UpdateBlock(ctx context.Context, block domain.Block) (domain.Block, error) {
	panic("UpdateBlock not configured")
}

func (t *memTx) GetBlock(ctx context.Context, id uuid.UUID) (domain.Block, error) {
	panic("GetBlock not configured")
}

type dispatched struct {
	id      uuid.UUID
	trigger domain.NotificationTrigger
}

type fakeNotifier struct {
	sent []dispatched
}

func (f *fakeNotifier) Dispatch(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error {
	f.sent = append(f.sent, dispatched{id: appt.ID, trigger: trigger})
	return nil
}

type fakeInvalidator struct {
	dates []civil.Date
}

func (f *fakeInvalidator) InvalidateDate(ctx context.Context, date civil.Date) error {
	f.dates = append(f.dates, date)
	return nil
}
