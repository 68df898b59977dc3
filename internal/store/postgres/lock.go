package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrImportLocked is returned when another import holds the lock.
var ErrImportLocked = errors.New("another import is running")

// ImportLock is a session-scoped advisory lock held on a dedicated
// connection. Postgres releases it if the connection dies, so a crashed
// import never leaves the lock behind.
type ImportLock struct {
	conn *sql.Conn
	key  int64
}

// AcquireImportLock tries the lock without blocking. It returns
// ErrImportLocked when another session holds it.
func AcquireImportLock(ctx context.Context, db *sql.DB, key int64) (*ImportLock, error) {
	// Advisory lock is session-scoped: must use a dedicated connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dedicated connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, queryTryImportLock, key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("advisory lock query: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, ErrImportLocked
	}

	log.Info().Int64("lock_key", key).Msg("import: acquired advisory lock")
	return &ImportLock{conn: conn, key: key}, nil
}

// Alive pings the dedicated connection. A dead connection means the lock
// is gone.
func (l *ImportLock) Alive(ctx context.Context) error {
	return l.conn.PingContext(ctx)
}

// Release unlocks and returns the connection to the pool. It is safe to
// call more than once.
func (l *ImportLock) Release(ctx context.Context) {
	if l.conn == nil {
		return
	}
	if _, err := l.conn.ExecContext(ctx, queryImportUnlock, l.key); err != nil {
		log.Warn().Err(err).Int64("lock_key", l.key).Msg("import: advisory unlock failed, closing connection")
	}
	l.conn.Close()
	l.conn = nil
	log.Info().Int64("lock_key", l.key).Msg("import: released advisory lock")
}
