package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"fintech_reviews/internal/domain"
)

// Open connects to the store and checks it is reachable. An unreachable store wraps domain.ErrStoreUnavailable.
func Open(ctx context.Context, d Dialect, dsn string) (*Repo, error) {
	if d == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStoreUnavailable, d, err)
	}
	if d == SQLite {
		// one writer; also keeps in-memory databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStoreUnavailable, d, err)
	}
	return New(db, d), nil
}

// sqliteDSN turns a bare path into a URI with foreign keys enforced and a busy timeout.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
