package privacy_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vpqxl1/selfbot/activity"
	"github.com/vpqxl1/selfbot/privacy"
)

var dbcount atomic.Uint64

func testConn() *sqlitex.Pool {
	k := dbcount.Add(1)
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%d.db?mode=memory&cache=shared", k), sqlitex.PoolOptions{Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenMemory | sqlite.OpenSharedCache | sqlite.OpenURI})
	if err != nil {
		panic(err)
	}
	return pool
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	if err := privacy.Init(ctx, db); err != nil {
		t.Error(err)
	}
}

// TestCohabitant tests that an opt-out list and activity records can exist
// in the same database.
func TestCohabitant(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	if err := activity.Init(ctx, db); err != nil {
		t.Errorf("couldn't create activity schema in the first place: %v", err)
	}
	if err := privacy.Init(ctx, db); err != nil {
		t.Errorf("couldn't create opt-out list together with activity: %v", err)
	}
}

func TestList(t *testing.T) {
	type check struct {
		user string
		out  bool
	}
	cases := []struct {
		name string
		add  []string
		rem  []string
		chk  []check
	}{
		{
			name: "empty",
			add:  nil,
			rem:  nil,
			chk: []check{
				{user: "bocchi", out: false},
				{user: "ryou", out: false},
			},
		},
		{
			name: "present",
			add:  []string{"bocchi", "ryou"},
			rem:  nil,
			chk: []check{
				{user: "bocchi", out: true},
				{user: "ryou", out: true},
				{user: "nijika", out: false},
			},
		},
		{
			name: "removed",
			add:  []string{"bocchi", "ryou"},
			rem:  []string{"ryou", "nijika"},
			chk: []check{
				{user: "bocchi", out: true},
				{user: "ryou", out: false},
				{user: "nijika", out: false},
			},
		},
		{
			name: "readded",
			add:  []string{"bocchi", "bocchi"},
			rem:  nil,
			chk: []check{
				{user: "bocchi", out: true},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			db := testConn()
			if err := privacy.Init(ctx, db); err != nil {
				t.Fatalf("couldn't init: %v", err)
			}
			l, err := privacy.Open(ctx, db)
			if err != nil {
				t.Fatalf("couldn't open: %v", err)
			}
			for _, u := range c.add {
				if err := l.Add(ctx, u); err != nil {
					t.Errorf("couldn't add %s: %v", u, err)
				}
			}
			for _, u := range c.rem {
				if err := l.Remove(ctx, u); err != nil {
					t.Errorf("couldn't remove %s: %v", u, err)
				}
			}
			for _, k := range c.chk {
				err := l.Check(ctx, k.user)
				switch {
				case k.out && !errors.Is(err, privacy.ErrOptedOut):
					t.Errorf("check of %s: want ErrOptedOut, got %v", k.user, err)
				case !k.out && err != nil:
					t.Errorf("check of %s: want nil, got %v", k.user, err)
				}
			}
		})
	}
}
