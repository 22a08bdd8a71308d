package repository

import (
    "context"
    "sort"
    "sync"

    "github.com/iliyamo/salon-booking/internal/model"
)

// MemoryServiceRepo is a process-local service catalogue.  It backs the
// "memory" store driver and the unit tests.
type MemoryServiceRepo struct {
    mu       sync.RWMutex
    services map[string]model.Service
}

// NewMemoryServiceRepo returns an empty catalogue.
func NewMemoryServiceRepo() *MemoryServiceRepo {
    return &MemoryServiceRepo{services: make(map[string]model.Service)}
}

func (r *MemoryServiceRepo) List(_ context.Context) ([]model.Service, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make([]model.Service, 0, len(r.services))
    for _, s := range r.services {
        out = append(out, s)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out, nil
}

func (r *MemoryServiceRepo) GetByID(_ context.Context, id string) (*model.Service, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    s, ok := r.services[id]
    if !ok {
        return nil, ErrServiceNotFound
    }
    return &s, nil
}

func (r *MemoryServiceRepo) Count(_ context.Context) (int64, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return int64(len(r.services)), nil
}

func (r *MemoryServiceRepo) InsertMany(_ context.Context, services []model.Service) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, s := range services {
        r.services[s.ID] = s
    }
    return nil
}

// MemoryBookingRepo keeps bookings in a map guarded by a single mutex.
// Holding the write lock across the overlap scan and the insert makes
// CreateIfNoConflict atomic within the process.
type MemoryBookingRepo struct {
    mu       sync.RWMutex
    bookings map[string]model.Booking
}

// NewMemoryBookingRepo returns an empty booking store.
func NewMemoryBookingRepo() *MemoryBookingRepo {
    return &MemoryBookingRepo{bookings: make(map[string]model.Booking)}
}

func (r *MemoryBookingRepo) CreateIfNoConflict(_ context.Context, b *model.Booking) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    existing := make([]model.Booking, 0, len(r.bookings))
    for _, e := range r.bookings {
        existing = append(existing, e)
    }
    if model.HasConflict(b.StartTime, b.EndTime, existing) {
        return ErrSlotTaken
    }
    r.bookings[b.ID] = *b
    return nil
}

func (r *MemoryBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    b, ok := r.bookings[id]
    if !ok {
        return nil, ErrBookingNotFound
    }
    return &b, nil
}

func (r *MemoryBookingRepo) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    b, ok := r.bookings[id]
    if !ok {
        return ErrBookingNotFound
    }
    if b.Status != from {
        return ErrStatusChanged
    }
    b.Status = to
    r.bookings[id] = b
    return nil
}

func (r *MemoryBookingRepo) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make([]model.Booking, 0, len(r.bookings))
    for _, b := range r.bookings {
        if f.Matches(b) {
            out = append(out, b)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
    return out, nil
}
