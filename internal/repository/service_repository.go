package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/iliyamo/salon-booking/internal/model"
)

// ServiceRepo reads and seeds the services table.
type ServiceRepo struct {
    db *sql.DB
}

// NewServiceRepo returns a new ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// List returns every service ordered by name.
func (r *ServiceRepo) List(ctx context.Context) ([]model.Service, error) {
    const q = `SELECT id, name, duration_minutes, price_cents, description FROM services ORDER BY name ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, fmt.Errorf("query services: %w", err)
    }
    defer rows.Close()

    out := make([]model.Service, 0)
    for rows.Next() {
        s, err := scanService(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, fmt.Errorf("iterate services: %w", err)
    }
    return out, nil
}

// GetByID fetches a single service.  ErrServiceNotFound is returned when
// no row matches.
func (r *ServiceRepo) GetByID(ctx context.Context, id string) (*model.Service, error) {
    const q = `SELECT id, name, duration_minutes, price_cents, description FROM services WHERE id = ?`
    s, err := scanService(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrServiceNotFound
        }
        return nil, err
    }
    return &s, nil
}

// Count returns the number of stored services.
func (r *ServiceRepo) Count(ctx context.Context) (int64, error) {
    var n int64
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&n); err != nil {
        return 0, fmt.Errorf("count services: %w", err)
    }
    return n, nil
}

// InsertMany adds services in a single multi-row statement.
func (r *ServiceRepo) InsertMany(ctx context.Context, services []model.Service) error {
    if len(services) == 0 {
        return nil
    }
    query := `INSERT INTO services (id, name, duration_minutes, price_cents, description) VALUES `
    args := make([]interface{}, 0, len(services)*5)
    for i, s := range services {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?)"
        args = append(args, s.ID, s.Name, s.DurationMinutes, s.PriceCents, nullString(s.Description))
    }
    if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
        return fmt.Errorf("insert services: %w", err)
    }
    return nil
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanService(row rowScanner) (model.Service, error) {
    var s model.Service
    var desc sql.NullString
    if err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &desc); err != nil {
        return model.Service{}, err
    }
    s.Description = desc.String
    return s, nil
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
