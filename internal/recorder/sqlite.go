package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"stockDash/internal/model"
	"stockDash/internal/trace"
)

// SQLiteRecorder 快照写入 SQLite（WAL 模式）。
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder 打开或创建数据库并执行迁移；父目录不存在时创建。
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	trace.Log(context.Background(), "recorder: sqlite opened %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spot_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			count     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spot_snapshots_ts ON spot_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS spot_quotes (
			snapshot_id   INTEGER NOT NULL REFERENCES spot_snapshots(id),
			code          TEXT NOT NULL,
			name          TEXT,
			price         REAL,
			change_pct    REAL,
			amount        REAL,
			turnover_rate REAL,
			market_cap    REAL,
			pe            REAL,
			PRIMARY KEY (snapshot_id, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spot_quotes_code ON spot_quotes(code)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSpot 在一个事务内写入快照头与全部行情，成功后回填 snap.ID。
func (r *SQLiteRecorder) RecordSpot(snap *SpotSnapshot) error {
	if snap == nil {
		return errors.New("recorder: nil snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := snap.Taken
	if taken.IsZero() {
		taken = time.Now()
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO spot_snapshots (timestamp, count) VALUES (?, ?)`, taken.Unix(), len(snap.Quotes))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO spot_quotes
		(snapshot_id, code, name, price, change_pct, amount, turnover_rate, market_cap, pe)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare quotes: %w", err)
	}
	defer stmt.Close()
	for _, q := range snap.Quotes {
		if _, err := stmt.Exec(id, q.Code, q.Name, q.Price, q.ChangePct, q.Amount, q.TurnoverRate, q.MarketCap, q.PE); err != nil {
			return fmt.Errorf("insert quote %s: %w", q.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	snap.ID = id
	snap.Taken = taken
	return nil
}

func (r *SQLiteRecorder) LatestSpot() (*SpotSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		snap SpotSnapshot
		ts   int64
	)
	err := r.db.QueryRow(`SELECT id, timestamp FROM spot_snapshots ORDER BY id DESC LIMIT 1`).Scan(&snap.ID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	snap.Taken = time.Unix(ts, 0)

	rows, err := r.db.Query(`SELECT code, name, price, change_pct, amount, turnover_rate, market_cap, pe
		FROM spot_quotes WHERE snapshot_id = ? ORDER BY code`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q    model.StockQuote
			name sql.NullString
		)
		if err := rows.Scan(&q.Code, &name, &q.Price, &q.ChangePct, &q.Amount, &q.TurnoverRate, &q.MarketCap, &q.PE); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.Name = name.String
		snap.Quotes = append(snap.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *SQLiteRecorder) Close() error {
	trace.Log(context.Background(), "recorder: closing sqlite")
	return r.db.Close()
}
