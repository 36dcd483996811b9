package utils

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
)

// Minimal driver stub: just enough to observe Begin/Commit/Rollback.

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	commits   int
	rollbacks int
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return stubTx{c}, nil }

type stubTx struct{ c *stubConn }

func (t stubTx) Commit() error   { t.c.commits++; return nil }
func (t stubTx) Rollback() error { t.c.rollbacks++; return nil }

func openStub(t *testing.T, name string) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub: %v", err)
	}
	return db, conn
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db, conn := openStub(t, "stub-commit")
	defer db.Close()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if conn.commits != 1 || conn.rollbacks != 0 {
		t.Fatalf("commits=%d rollbacks=%d, want 1/0", conn.commits, conn.rollbacks)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, conn := openStub(t, "stub-rollback")
	defer db.Close()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Fatalf("commits=%d rollbacks=%d, want 0/1", conn.commits, conn.rollbacks)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db, conn := openStub(t, "stub-panic")
	defer db.Close()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic did not propagate")
			}
		}()
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	}()
	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Fatalf("commits=%d rollbacks=%d, want 0/1", conn.commits, conn.rollbacks)
	}
}
