package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kairo-backend/internal/availability"
)

type Repository interface {
	Create(ctx context.Context, r Reservation) error
	GetByID(ctx context.Context, id string) (Reservation, error)
	List(ctx context.Context, filter ListFilter) ([]Reservation, error)
	// Overlapping returns the non-cancelled reservations intersecting slot,
	// ignoring excludeID when it is not empty.
	Overlapping(ctx context.Context, slot availability.Slot, excludeID string) ([]Reservation, error)
	Update(ctx context.Context, r Reservation) error
}

type ExclusionRepository interface {
	// Covering returns the exclusions intersecting the inclusive date range.
	Covering(ctx context.Context, firstDay, lastDay string) ([]Exclusion, error)
	List(ctx context.Context) ([]Exclusion, error)
	Create(ctx context.Context, e Exclusion) error
	Delete(ctx context.Context, id string) error
}

const (
	exclusionViolation = "23P01"
	overlapConstraint  = "reservations_no_overlap"
)

const reservationColumns = `id, client_name, client_email, client_phone, reservation_type,
	communication_method, project_description, start_time, end_time, status,
	cancellation_token, notes, meeting_link, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID, &r.ClientName, &r.ClientEmail, &r.ClientPhone, &r.Type,
		&r.CommunicationMethod, &r.ProjectDescription, &r.StartTime, &r.EndTime, &r.Status,
		&r.CancellationToken, &r.Notes, &r.MeetingLink, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()
	items := make([]Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// mapWriteError turns the overlap exclusion constraint into ErrOverlap so
// concurrent submissions for the same slot surface as a conflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation && pgErr.ConstraintName == overlapConstraint {
		return ErrOverlap
	}
	return err
}

func (r *PostgresRepository) Create(ctx context.Context, res Reservation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		res.ID, res.ClientName, res.ClientEmail, res.ClientPhone, res.Type,
		res.CommunicationMethod, res.ProjectDescription, res.StartTime, res.EndTime, res.Status,
		res.CancellationToken, res.Notes, res.MeetingLink, res.CreatedAt, res.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNoRecord
	}
	return res, err
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !filter.From.IsZero() {
		add("start_time >= $%d", filter.From)
	}
	if !filter.Until.IsZero() {
		add("start_time < $%d", filter.Until)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PostgresRepository) Overlapping(ctx context.Context, slot availability.Slot, excludeID string) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status <> 'cancelled'
		  AND start_time < $2 AND end_time > $1
		  AND ($3 = '' OR id <> $3)
		ORDER BY start_time ASC`,
		slot.Start, slot.End, excludeID,
	)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, res Reservation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reservations
		SET start_time = $2, end_time = $3, status = $4, notes = $5, meeting_link = $6, updated_at = $7
		WHERE id = $1`,
		res.ID, res.StartTime, res.EndTime, res.Status, res.Notes, res.MeetingLink, res.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

type PostgresExclusionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresExclusionRepository(pool *pgxpool.Pool) *PostgresExclusionRepository {
	return &PostgresExclusionRepository{pool: pool}
}

func collectExclusions(rows pgx.Rows) ([]Exclusion, error) {
	defer rows.Close()
	items := make([]Exclusion, 0)
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.ID, &e.StartDate, &e.EndDate, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *PostgresExclusionRepository) Covering(ctx context.Context, firstDay, lastDay string) ([]Exclusion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, start_date::text, end_date::text, reason, created_at FROM exclusions
		WHERE start_date <= $2::date AND end_date >= $1::date
		ORDER BY start_date ASC`,
		firstDay, lastDay,
	)
	if err != nil {
		return nil, err
	}
	return collectExclusions(rows)
}

func (r *PostgresExclusionRepository) List(ctx context.Context) ([]Exclusion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, start_date::text, end_date::text, reason, created_at FROM exclusions
		ORDER BY start_date ASC`)
	if err != nil {
		return nil, err
	}
	return collectExclusions(rows)
}

func (r *PostgresExclusionRepository) Create(ctx context.Context, e Exclusion) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO exclusions (id, start_date, end_date, reason, created_at)
		VALUES ($1, $2::date, $3::date, $4, $5)`,
		e.ID, e.StartDate, e.EndDate, e.Reason, e.CreatedAt,
	)
	return err
}

func (r *PostgresExclusionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exclusions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}
