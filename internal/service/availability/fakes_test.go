package availability

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

type memRepo struct {
	availability map[uuid.UUID]domain.WeeklyAvailability
	blocks       map[uuid.UUID]domain.Block
	appointments []domain.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		availability: map[uuid.UUID]domain.WeeklyAvailability{},
		blocks:       map[uuid.UUID]domain.Block{},
	}
}

func (m *memRepo) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	pending := map[uuid.UUID]domain.Block{}
	if err := fn(ctx, &memTx{repo: m, pending: pending}); err != nil {
		return err
	}
	for id, b := range pending {
		m.blocks[id] = b
	}
	return nil
}

func (m *memRepo) FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error) {
	var out []domain.WeeklyAvailability
	for _, a := range m.availability {
		if a.Active && a.DayOfWeek == day {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error) {
	var out []domain.Block
	for _, b := range m.blocks {
		if b.Interval().Overlaps(iv) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepo) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	for _, a := range m.appointments {
		if a.ID != excludeID && a.IsActive() && a.Interval().Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range m.appointments {
		if a.IsActive() && a.Interval().Overlaps(iv) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) ListAvailability(ctx context.Context) ([]domain.WeeklyAvailability, error) {
	out := make([]domain.WeeklyAvailability, 0, len(m.availability))
	for _, a := range m.availability {
		out = append(out, a)
	}
	return out, nil
}

func (m *memRepo) CreateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error) {
	a.ID = uuid.New()
	m.availability[a.ID] = a
	return a, nil
}

func (m *memRepo) UpdateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error) {
	if _, ok := m.availability[a.ID]; !ok {
		return domain.WeeklyAvailability{}, store.ErrNotFound
	}
	m.availability[a.ID] = a
	return a, nil
}

func (m *memRepo) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.availability[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.availability, id)
	return nil
}

func (m *memRepo) ListBlocks(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Block, error) {
	return m.FindBlocksOverlapping(ctx, domain.TimeInterval{Start: windowStart, End: windowEnd})
}

func (m *memRepo) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.blocks[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.blocks, id)
	return nil
}

// memTx exposes only the block operations; the rest of CalendarTx is not
// used by this package.
type memTx struct {
	store.CalendarTx
	repo    *memRepo
	pending map[uuid.UUID]domain.Block
}

func (t *memTx) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	return t.repo.ExistsActiveAppointmentOverlapping(ctx, iv, excludeID)
}

func (t *memTx) CreateBlock(ctx context.Context, b domain.Block) (domain.Block, error) {
	b.ID = uuid.New()
	t.pending[b.ID] = b
	return b, nil
}

func (t *memTx) GetBlock(ctx context.Context, id uuid.UUID) (domain.Block, error) {
	b, ok := t.repo.blocks[id]
	if !ok {
		return domain.Block{}, store.ErrNotFound
	}
	return b, nil
}

func (t *memTx) UpdateBlock(ctx context.Context, b domain.Block) (domain.Block, error) {
	if _, ok := t.repo.blocks[b.ID]; !ok {
		return domain.Block{}, store.ErrNotFound
	}
	t.pending[b.ID] = b
	return b, nil
}

type cacheKey struct {
	date civil.Date
	d    time.Duration
}

type memCache struct {
	entries     map[cacheKey][]scheduling.Slot
	invalidated []civil.Date
	flushes     int
}

func newMemCache() *memCache {
	return &memCache{entries: map[cacheKey][]scheduling.Slot{}}
}

func (c *memCache) Get(ctx context.Context, date civil.Date, d time.Duration) ([]scheduling.Slot, bool, error) {
	s, ok := c.entries[cacheKey{date, d}]
	return s, ok, nil
}

func (c *memCache) Set(ctx context.Context, date civil.Date, d time.Duration, slots []scheduling.Slot) error {
	c.entries[cacheKey{date, d}] = slots
	return nil
}

func (c *memCache) InvalidateDate(ctx context.Context, date civil.Date) error {
	c.invalidated = append(c.invalidated, date)
	for k := range c.entries {
		if k.date == date {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memCache) InvalidateAll(ctx context.Context) error {
	c.flushes++
	c.entries = map[cacheKey][]scheduling.Slot{}
	return nil
}
