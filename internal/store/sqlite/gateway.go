package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"kcal_tracker_bot/internal/domain"
	"kcal_tracker_bot/internal/format"
)

const consumedColumns = "id, user_id, date, text, kcal"

type consumedRow struct {
	ID     int64           `db:"id"`
	UserID int64           `db:"user_id"`
	Date   string          `db:"date"`
	Text   string          `db:"text"`
	Kcal   sql.NullFloat64 `db:"kcal"`
}

func (r consumedRow) toDomain() (domain.ConsumedItem, error) {
	date, err := format.FromStorage(r.Date)
	if err != nil {
		return domain.ConsumedItem{}, fmt.Errorf("consumed %d date: %w", r.ID, err)
	}

	item := domain.ConsumedItem{
		ID:     r.ID,
		UserID: r.UserID,
		Date:   date,
		Text:   r.Text,
	}
	if r.Kcal.Valid {
		kcal := r.Kcal.Float64
		item.Kcal = &kcal
	}

	return item, nil
}

// Gateway stores users and consumed items in SQLite.
type Gateway struct {
	db *sqlx.DB
}

// NewGateway wraps an opened database.
func NewGateway(db *sqlx.DB) (*Gateway, error) {
	if db == nil {
		return nil, errors.New("sqlite database is required")
	}
	return &Gateway{db: db}, nil
}

// HasUser reports whether userID is registered.
func (g *Gateway) HasUser(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	if err := g.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID); err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	return exists, nil
}

// RegisterUser inserts a user with offset 0 and no limit. An existing user is
// left untouched and created is false.
func (g *Gateway) RegisterUser(ctx context.Context, userID int64, registeredAt time.Time) (bool, error) {
	result, err := g.db.ExecContext(ctx,
		`INSERT INTO users (id, register_date, timezone, max_kcal) VALUES (?, ?, 0, NULL)
		ON CONFLICT(id) DO NOTHING`,
		userID, format.ToStorage(registeredAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return affected > 0, nil
}

// AddConsumedItem stores a new item. The user must exist.
func (g *Gateway) AddConsumedItem(ctx context.Context, userID int64, text string, kcal *float64, at time.Time) (domain.ConsumedItem, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ConsumedItem{}, errors.New("item text is required")
	}

	var row consumedRow
	err := g.db.GetContext(ctx, &row,
		`INSERT INTO consumed (user_id, date, text, kcal) VALUES (?, ?, ?, ?) RETURNING `+consumedColumns,
		userID, format.ToStorage(at), text, nullable(kcal),
	)
	if err != nil {
		return domain.ConsumedItem{}, fmt.Errorf("insert consumed: %w", err)
	}

	return row.toDomain()
}

// RemoveConsumedItem deletes item id. A non-nil owner restricts the delete to
// that user's items.
func (g *Gateway) RemoveConsumedItem(ctx context.Context, id int64, owner *int64) (domain.ConsumedItem, error) {
	query := `DELETE FROM consumed WHERE id = ?`
	args := []interface{}{id}
	if owner != nil {
		query += ` AND user_id = ?`
		args = append(args, *owner)
	}

	var row consumedRow
	if err := g.db.GetContext(ctx, &row, query+` RETURNING `+consumedColumns, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ConsumedItem{}, fmt.Errorf("consumed %d: %w", id, domain.ErrNotFound)
		}
		return domain.ConsumedItem{}, fmt.Errorf("delete consumed: %w", err)
	}

	return row.toDomain()
}

// ConsumedSum totals kcal for userID inside r. Items without kcal count as 0.
func (g *Gateway) ConsumedSum(ctx context.Context, r domain.Range, userID int64) (float64, error) {
	where, args := rangeWhere(r, &userID)

	var total float64
	if err := g.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(COALESCE(kcal, 0)), 0) FROM consumed`+where, args...); err != nil {
		return 0, fmt.Errorf("sum consumed: %w", err)
	}
	return total, nil
}

// ConsumedItems lists items inside r ordered by date then id. A nil userID
// lists every user's items.
func (g *Gateway) ConsumedItems(ctx context.Context, r domain.Range, userID *int64) ([]domain.ConsumedItem, error) {
	where, args := rangeWhere(r, userID)

	var rows []consumedRow
	if err := g.db.SelectContext(ctx, &rows, `SELECT `+consumedColumns+` FROM consumed`+where+` ORDER BY date, id`, args...); err != nil {
		return nil, fmt.Errorf("select consumed: %w", err)
	}

	items := make([]domain.ConsumedItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// TimezoneOffset returns the stored offset for userID.
func (g *Gateway) TimezoneOffset(ctx context.Context, userID int64) (int, error) {
	var offset int
	if err := g.getUserColumn(ctx, &offset, "timezone", userID); err != nil {
		return 0, err
	}
	return offset, nil
}

// SetTimezoneOffset replaces the offset for userID.
func (g *Gateway) SetTimezoneOffset(ctx context.Context, userID int64, offset int) error {
	return g.setUserColumn(ctx, "timezone", offset, userID)
}

// MaxKcal returns the daily limit for userID, nil when unset.
func (g *Gateway) MaxKcal(ctx context.Context, userID int64) (*float64, error) {
	var limit sql.NullFloat64
	if err := g.getUserColumn(ctx, &limit, "max_kcal", userID); err != nil {
		return nil, err
	}
	if !limit.Valid {
		return nil, nil
	}
	return &limit.Float64, nil
}

// SetMaxKcal replaces the daily limit for userID. nil clears it.
func (g *Gateway) SetMaxKcal(ctx context.Context, userID int64, limit *float64) error {
	return g.setUserColumn(ctx, "max_kcal", nullable(limit), userID)
}

// CountUsers returns the number of registered users.
func (g *Gateway) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := g.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CountConsumed returns the number of consumed items across all users.
func (g *Gateway) CountConsumed(ctx context.Context) (int64, error) {
	var count int64
	if err := g.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM consumed`); err != nil {
		return 0, fmt.Errorf("count consumed: %w", err)
	}
	return count, nil
}

// DeleteUser removes userID; its consumed items go with it through the
// foreign key cascade.
func (g *Gateway) DeleteUser(ctx context.Context, userID int64) error {
	result, err := g.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(result, userID)
}

// Ping checks the database connection.
func (g *Gateway) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (g *Gateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// column is always one of the fixed names used by this file.
func (g *Gateway) getUserColumn(ctx context.Context, dest interface{}, column string, userID int64) error {
	err := g.db.GetContext(ctx, dest, `SELECT `+column+` FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("select user %s: %w", column, err)
	}
	return nil
}

func (g *Gateway) setUserColumn(ctx context.Context, column string, value interface{}, userID int64) error {
	result, err := g.db.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE id = ?`, value, userID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	return requireAffected(result, userID)
}

func requireAffected(result sql.Result, userID int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func nullable(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func rangeWhere(r domain.Range, userID *int64) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if userID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *userID)
	}
	if r.Begin != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, format.ToStorage(*r.Begin))
	}
	if r.End != nil {
		clauses = append(clauses, "date < ?")
		args = append(args, format.ToStorage(*r.End))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
