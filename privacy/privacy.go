// Package privacy implements the activity-tracking opt-out list.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrOptedOut is returned by Check when the user has opted out of activity
// tracking.
var ErrOptedOut = errors.New("user opted out")

// List is an opt-out list backed by an SQL database.
type List struct {
	db *sqlitex.Pool
}

// Open opens an existing opt-out list in an SQL database.
func Open(ctx context.Context, db *sqlitex.Pool) (*List, error) {
	return &List{db: db}, nil
}

// Init initializes the opt-out list schema.
// For convenience, it accepts either a single connection or a pool.
func Init[DB *sqlite.Conn | *sqlitex.Pool](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		defer db.Put(conn)
		if err != nil {
			return fmt.Errorf("couldn't get connection from pool: %w", err)
		}
	}
	return sqlitex.ExecuteTransient(conn, `CREATE TABLE IF NOT EXISTS optout (user TEXT PRIMARY KEY) STRICT, WITHOUT ROWID`, nil)
}

// Add opts a user out of activity tracking. Adding a user who is already
// opted out is a no-op.
func (l *List) Add(ctx context.Context, user string) error {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to opt out user: %w", err)
	}
	opts := sqlitex.ExecOptions{Args: []any{user}}
	return sqlitex.Execute(conn, `INSERT INTO optout (user) VALUES (?) ON CONFLICT DO NOTHING`, &opts)
}

// Remove opts a user back in.
func (l *List) Remove(ctx context.Context, user string) error {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to opt in user: %w", err)
	}
	opts := sqlitex.ExecOptions{Args: []any{user}}
	return sqlitex.Execute(conn, `DELETE FROM optout WHERE user=?`, &opts)
}

// Check returns ErrOptedOut if the user has opted out, and nil otherwise.
func (l *List) Check(ctx context.Context, user string) error {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to check opt-out: %w", err)
	}
	st, err := conn.Prepare(`SELECT ? IN (SELECT user FROM optout)`)
	if err != nil {
		return fmt.Errorf("couldn't prepare statement to check opt-out: %w", err)
	}
	st.BindText(1, user)
	ok, err := sqlitex.ResultBool(st)
	if err != nil {
		return err
	}
	if ok {
		return ErrOptedOut
	}
	return nil
}
