// Package activity records per-channel message activity for analytics
// commands. Senders are recorded as userhashes, never as raw IDs.
package activity

import (
	"context"
	_ "embed"
	"encoding/hex"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vpqxl1/selfbot/userhash"
)

//go:embed schema.sql
var schemaSQL string

// Init initializes an SQLite DB to record activity.
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
			return fmt.Errorf("couldn't get conn to init activity: %w", err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		return fmt.Errorf("couldn't initialize activity schema: %w", err)
	}
	return nil
}

// Recorder records and aggregates channel activity.
type Recorder struct {
	db *sqlitex.Pool
}

// Open opens an activity recorder over an initialized database.
func Open(ctx context.Context, db *sqlitex.Pool) (*Recorder, error) {
	return &Recorder{db: db}, nil
}

// Record notes one message from a hashed sender in a channel.
func (r *Recorder) Record(ctx context.Context, channel string, user userhash.Hash, tm time.Time) error {
	conn, err := r.db.Take(ctx)
	defer r.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get conn to record activity: %w", err)
	}
	st, err := conn.Prepare(`INSERT INTO activity (channel, user, time) VALUES (:channel, :user, :time)`)
	if err != nil {
		return fmt.Errorf("couldn't prepare statement to record activity: %w", err)
	}
	st.SetText(":channel", channel)
	st.SetBytes(":user", user[:])
	st.SetInt64(":time", tm.UnixNano())
	if _, err := st.Step(); err != nil {
		return fmt.Errorf("couldn't insert activity: %w", err)
	}
	return nil
}

// Count returns the number of messages seen in a channel since a time.
func (r *Recorder) Count(ctx context.Context, channel string, since time.Time) (int64, error) {
	conn, err := r.db.Take(ctx)
	defer r.db.Put(conn)
	if err != nil {
		return 0, fmt.Errorf("couldn't get conn to count activity: %w", err)
	}
	st, err := conn.Prepare(`SELECT COUNT(*) FROM activity WHERE channel=:channel AND time>=:since`)
	if err != nil {
		return 0, fmt.Errorf("couldn't prepare statement to count activity: %w", err)
	}
	st.SetText(":channel", channel)
	st.SetInt64(":since", since.UnixNano())
	if _, err := st.Step(); err != nil {
		return 0, fmt.Errorf("couldn't count activity: %w", err)
	}
	n := st.ColumnInt64(0)
	st.Step()
	return n, nil
}

// UserCount is a sender's message count for a window.
type UserCount struct {
	// User is the hex-encoded userhash of the sender.
	User string
	// Count is the number of messages.
	Count int64
}

// Top returns the most active hashed senders in a channel since a time,
// most active first.
func (r *Recorder) Top(ctx context.Context, channel string, since time.Time, n int) ([]UserCount, error) {
	conn, err := r.db.Take(ctx)
	defer r.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get conn for top activity: %w", err)
	}
	var l []UserCount
	opts := sqlitex.ExecOptions{
		Named: map[string]any{":channel": channel, ":since": since.UnixNano(), ":n": int64(n)},
		ResultFunc: func(st *sqlite.Stmt) error {
			u := make([]byte, st.ColumnLen(0))
			st.ColumnBytes(0, u)
			l = append(l, UserCount{User: hex.EncodeToString(u), Count: st.ColumnInt64(1)})
			return nil
		},
	}
	const sel = `SELECT user, COUNT(*) AS n FROM activity WHERE channel=:channel AND time>=:since GROUP BY user ORDER BY n DESC LIMIT :n`
	if err := sqlitex.Execute(conn, sel, &opts); err != nil {
		return nil, fmt.Errorf("couldn't query top activity: %w", err)
	}
	return l, nil
}
