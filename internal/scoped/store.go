package scoped

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Table describes a scoped table to the Store.
type Table struct {
	Name   string
	Kind   Kind
	Entity string
	// OptionalGym stores an empty GymID as NULL. Reads of such tables should
	// select COALESCE(gym_id, '') AS gym_id.
	OptionalGym bool
}

// Query is the caller's part of a SELECT. Where is ANDed after the tenant
// predicate and uses '?' placeholders.
type Query struct {
	Columns   string
	Where     string
	Args      []any
	OrderBy   string
	Limit     int
	ForUpdate bool
}

// Store wraps a *sqlx.DB or *sqlx.Tx. It has no method that runs a statement
// without the tenant predicate, so repositories built on it cannot forget the
// WHERE clause.
type Store struct {
	q sqlx.ExtContext
}

func NewStore(q sqlx.ExtContext) *Store {
	return &Store{q: q}
}

func (s *Store) selectSQL(ctx context.Context, t Table, q Query) (string, []any, error) {
	f, err := Current(ctx, t.Kind)
	if err != nil {
		return "", nil, fmt.Errorf("query %s: %w", t.Entity, err)
	}
	pred, args := f.SQL("")

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.Columns)
	b.WriteString(" FROM ")
	b.WriteString(t.Name)
	b.WriteString(" WHERE ")
	b.WriteString(pred)
	if q.Where != "" {
		b.WriteString(" AND (")
		b.WriteString(q.Where)
		b.WriteString(")")
		args = append(args, q.Args...)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.ForUpdate {
		b.WriteString(" FOR UPDATE")
	}
	return s.q.Rebind(b.String()), args, nil
}

func (s *Store) Get(ctx context.Context, dest any, t Table, q Query) error {
	query, args, err := s.selectSQL(ctx, t, q)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, s.q, dest, query, args...)
}

func (s *Store) Select(ctx context.Context, dest any, t Table, q Query) error {
	query, args, err := s.selectSQL(ctx, t, q)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, s.q, dest, query, args...)
}

// Insert stamps e from the scope and inserts the named columns. Column names
// must match the struct's db tags.
func (s *Store) Insert(ctx context.Context, t Table, e Entity, columns ...string) error {
	if err := Stamp(ctx, t.Kind, t.Entity, e); err != nil {
		return err
	}
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = ":" + c
		if c == "gym_id" && t.OptionalGym {
			values[i] = "NULLIF(:gym_id, '')"
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(columns, ", "), strings.Join(values, ", "))
	_, err := sqlx.NamedExecContext(ctx, s.q, query, e)
	return err
}

// Update runs "UPDATE t SET set WHERE <tenant> AND (where)" and returns the
// number of affected rows.
func (s *Store) Update(ctx context.Context, t Table, set string, setArgs []any, where string, whereArgs ...any) (int64, error) {
	f, err := Current(ctx, t.Kind)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.Entity, err)
	}
	pred, predArgs := f.SQL("")

	query := "UPDATE " + t.Name + " SET " + set + " WHERE " + pred
	args := append(append([]any{}, setArgs...), predArgs...)
	if where != "" {
		query += " AND (" + where + ")"
		args = append(args, whereArgs...)
	}

	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, t Table, where string, whereArgs ...any) (int64, error) {
	f, err := Current(ctx, t.Kind)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.Entity, err)
	}
	pred, args := f.SQL("")

	query := "DELETE FROM " + t.Name + " WHERE " + pred
	if where != "" {
		query += " AND (" + where + ")"
		args = append(args, whereArgs...)
	}

	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AdvisoryLock takes a transaction-scoped Postgres advisory lock on key,
// namespaced by the caller's organisation. Only meaningful inside Transact.
func (s *Store) AdvisoryLock(ctx context.Context, key string) error {
	f, err := Current(ctx, OrgScoped)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	_, err = s.q.ExecContext(ctx, s.q.Rebind("SELECT pg_advisory_xact_lock(hashtext(?))"), f.OrganisationID+":"+key)
	return err
}

// Transact runs fn with a Store bound to one transaction.
func Transact(ctx context.Context, db *sqlx.DB, fn func(s *Store) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
