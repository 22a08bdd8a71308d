package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/salon-booking/internal/model"
)

// BookingRepo persists bookings in MySQL.  Every write that depends on
// the calendar state runs inside a transaction that first locks the
// single booking_calendar row, so concurrent creations are serialized
// at the database.  All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, service_id, client_name, client_phone, client_email, start_time, end_time, status, created_at`

// CreateIfNoConflict inserts b when no active booking overlaps
// [b.StartTime, b.EndTime).  The check and the insert share one
// transaction holding the calendar lock; ErrSlotTaken is returned when
// the slot is already occupied and nothing is written.
func (r *BookingRepo) CreateIfNoConflict(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := r.lockCalendarTx(ctx, tx); err != nil {
        return err
    }
    n, err := r.CountOverlapsTx(ctx, tx, b.StartTime, b.EndTime)
    if err != nil {
        return err
    }
    if n > 0 {
        return ErrSlotTaken
    }
    if err := r.CreateTx(ctx, tx, b); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `UPDATE booking_calendar SET version = version + 1 WHERE id = 1`); err != nil {
        return fmt.Errorf("bump calendar version: %w", err)
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit: %w", err)
    }
    committed = true
    return nil
}

// lockCalendarTx takes the row lock that serializes calendar writes.
func (r *BookingRepo) lockCalendarTx(ctx context.Context, tx *sql.Tx) error {
    var version int64
    err := tx.QueryRowContext(ctx, `SELECT version FROM booking_calendar WHERE id = 1 FOR UPDATE`).Scan(&version)
    if err != nil {
        return fmt.Errorf("lock calendar: %w", err)
    }
    return nil
}

// CountOverlapsTx counts active bookings whose interval overlaps
// [start, end) within the provided transaction.
func (r *BookingRepo) CountOverlapsTx(ctx context.Context, tx *sql.Tx, start, end time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings
               WHERE status IN (?, ?) AND start_time < ? AND end_time > ?`
    var n int
    err := tx.QueryRowContext(ctx, q,
        string(model.BookingStatusPending), string(model.BookingStatusConfirmed),
        end.UTC(), start.UTC(),
    ).Scan(&n)
    if err != nil {
        return 0, fmt.Errorf("count overlaps: %w", err)
    }
    return n, nil
}

// CreateTx inserts a booking row within the scope of an existing
// transaction.  The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var email sql.NullString
    if b.ClientEmail != nil {
        email = sql.NullString{String: *b.ClientEmail, Valid: true}
    }
    _, err := tx.ExecContext(ctx, q,
        b.ID, b.ServiceID, b.ClientName, b.ClientPhone, email,
        b.StartTime.UTC(), b.EndTime.UTC(), string(b.Status), b.CreatedAt.UTC(),
    )
    if err != nil {
        return fmt.Errorf("insert booking: %w", err)
    }
    return nil
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, fmt.Errorf("get booking: %w", err)
    }
    return &b, nil
}

// UpdateStatus moves a booking from one status to another.  The update is
// conditional on the current status so that two admins acting at the
// same time cannot both apply a transition computed from stale state.
// ErrBookingNotFound is returned for an unknown id and ErrStatusChanged
// when the row exists but no longer has status from.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) error {
    res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
        string(to), id, string(from))
    if err != nil {
        return fmt.Errorf("update booking status: %w", err)
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return fmt.Errorf("rows affected: %w", err)
    }
    if affected > 0 {
        return nil
    }
    var exists int
    err = r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&exists)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrBookingNotFound
    }
    if err != nil {
        return fmt.Errorf("check booking: %w", err)
    }
    return ErrStatusChanged
}

// List returns bookings whose start time falls inside f, ordered by
// start time ascending.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
    var where []string
    var args []interface{}
    if !f.From.IsZero() {
        where = append(where, "start_time >= ?")
        args = append(args, f.From.UTC())
    }
    if !f.To.IsZero() {
        where = append(where, "start_time < ?")
        args = append(args, f.To.UTC())
    }
    q := `SELECT ` + bookingColumns + ` FROM bookings`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY start_time ASC"

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, fmt.Errorf("query bookings: %w", err)
    }
    defer rows.Close()

    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, fmt.Errorf("scan booking: %w", err)
        }
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, fmt.Errorf("iterate bookings: %w", err)
    }
    return out, nil
}

func scanBooking(row rowScanner) (model.Booking, error) {
    var b model.Booking
    var email sql.NullString
    var status string
    if err := row.Scan(&b.ID, &b.ServiceID, &b.ClientName, &b.ClientPhone, &email,
        &b.StartTime, &b.EndTime, &status, &b.CreatedAt); err != nil {
        return model.Booking{}, err
    }
    if email.Valid {
        e := email.String
        b.ClientEmail = &e
    }
    b.Status = model.BookingStatus(status)
    b.StartTime = b.StartTime.UTC()
    b.EndTime = b.EndTime.UTC()
    b.CreatedAt = b.CreatedAt.UTC()
    return b, nil
}
