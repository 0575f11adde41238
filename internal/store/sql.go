package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/hexboard/internal/hexerr"
)

// Dialect selects which SQL driver semantics SQLAdapter should use for
// parameter placeholders and upsert syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

const createSchemaSQLite = `
CREATE TABLE IF NOT EXISTS boards (
	id TEXT PRIMARY KEY, name TEXT NOT NULL, status TEXT NOT NULL,
	max_dollars REAL NOT NULL DEFAULT 0, max_tokens INTEGER NOT NULL DEFAULT 0,
	total_dollars REAL NOT NULL DEFAULT 0, total_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL, updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS hexes (
	id TEXT PRIMARY KEY, board_id TEXT NOT NULL, name TEXT NOT NULL,
	category TEXT NOT NULL, entity_type TEXT NOT NULL,
	position_q INTEGER NOT NULL, position_r INTEGER NOT NULL,
	config BLOB, status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL, updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS connections (
	id TEXT PRIMARY KEY, board_id TEXT NOT NULL,
	from_hex_id TEXT NOT NULL, to_hex_id TEXT NOT NULL, connection_type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY, value TEXT NOT NULL
);
`

// SQLAdapter implements Adapter over database/sql with a dialect switch
// across sqlite, postgres, and mysql.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect

	mu        sync.Mutex
	watchers  map[string][]func(hexID string)
}

// Open connects to a *sql.DB already created with the matching driver
// (mattn/go-sqlite3, lib/pq, or go-sql-driver/mysql) and initializes the
// schema.
func Open(db *sql.DB, dialect Dialect) (*SQLAdapter, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres, DialectMySQL:
	default:
		return nil, fmt.Errorf("store: unsupported dialect %q", dialect)
	}
	a := &SQLAdapter{db: db, dialect: dialect, watchers: make(map[string][]func(string))}
	if err := a.initSchema(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLAdapter) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// All three drivers accept this dialect-neutral DDL subset.
	for _, stmt := range splitStatements(createSchemaSQLite) {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(script); i++ {
		c := script[i]
		cur = append(cur, c)
		if c == ';' {
			out = append(out, string(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// placeholder renders the i-th (1-based) bind placeholder for the
// configured dialect.
func (a *SQLAdapter) placeholder(i int) string {
	if a.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (a *SQLAdapter) GetBoard(ctx context.Context, id string) (*BoardRecord, error) {
	q := fmt.Sprintf(`SELECT id, name, status, max_dollars, max_tokens, total_dollars, total_tokens, created_at, updated_at FROM boards WHERE id = %s`, a.placeholder(1))
	row := a.db.QueryRowContext(ctx, q, id)
	var b BoardRecord
	if err := row.Scan(&b.ID, &b.Name, &b.Status, &b.MaxDollars, &b.MaxTokens, &b.TotalDollars, &b.TotalTokens, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, hexerr.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (a *SQLAdapter) ListBoards(ctx context.Context) ([]*BoardRecord, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name, status, max_dollars, max_tokens, total_dollars, total_tokens, created_at, updated_at FROM boards`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BoardRecord
	for rows.Next() {
		var b BoardRecord
		if err := rows.Scan(&b.ID, &b.Name, &b.Status, &b.MaxDollars, &b.MaxTokens, &b.TotalDollars, &b.TotalTokens, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (a *SQLAdapter) CreateBoard(ctx context.Context, b *BoardRecord) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	q := fmt.Sprintf(`INSERT INTO boards (id, name, status, max_dollars, max_tokens, total_dollars, total_tokens, created_at, updated_at) VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4), a.placeholder(5), a.placeholder(6), a.placeholder(7), a.placeholder(8), a.placeholder(9))
	_, err := a.db.ExecContext(ctx, q, b.ID, b.Name, b.Status, b.MaxDollars, b.MaxTokens, b.TotalDollars, b.TotalTokens, b.CreatedAt, b.UpdatedAt)
	return err
}

func (a *SQLAdapter) UpdateBoard(ctx context.Context, b *BoardRecord) error {
	b.UpdatedAt = time.Now()
	q := fmt.Sprintf(`UPDATE boards SET name=%s, status=%s, max_dollars=%s, max_tokens=%s, updated_at=%s WHERE id=%s`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4), a.placeholder(5), a.placeholder(6))
	_, err := a.db.ExecContext(ctx, q, b.Name, b.Status, b.MaxDollars, b.MaxTokens, b.UpdatedAt, b.ID)
	return err
}

func (a *SQLAdapter) DeleteBoard(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM boards WHERE id=%s`, a.placeholder(1))
	_, err := a.db.ExecContext(ctx, q, id)
	return err
}

func (a *SQLAdapter) GetHex(ctx context.Context, id string) (*HexRecord, error) {
	q := fmt.Sprintf(`SELECT id, board_id, name, category, entity_type, position_q, position_r, config, status, created_at, updated_at FROM hexes WHERE id=%s`, a.placeholder(1))
	row := a.db.QueryRowContext(ctx, q, id)
	var h HexRecord
	if err := row.Scan(&h.ID, &h.BoardID, &h.Name, &h.Category, &h.EntityType, &h.PositionQ, &h.PositionR, &h.Config, &h.Status, &h.CreatedAt, &h.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, hexerr.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (a *SQLAdapter) ListHexes(ctx context.Context, boardID string) ([]*HexRecord, error) {
	q := fmt.Sprintf(`SELECT id, board_id, name, category, entity_type, position_q, position_r, config, status, created_at, updated_at FROM hexes WHERE board_id=%s`, a.placeholder(1))
	rows, err := a.db.QueryContext(ctx, q, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*HexRecord
	for rows.Next() {
		var h HexRecord
		if err := rows.Scan(&h.ID, &h.BoardID, &h.Name, &h.Category, &h.EntityType, &h.PositionQ, &h.PositionR, &h.Config, &h.Status, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (a *SQLAdapter) CreateHex(ctx context.Context, h *HexRecord) error {
	now := time.Now()
	h.CreatedAt, h.UpdatedAt = now, now
	q := fmt.Sprintf(`INSERT INTO hexes (id, board_id, name, category, entity_type, position_q, position_r, config, status, created_at, updated_at) VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4), a.placeholder(5), a.placeholder(6), a.placeholder(7), a.placeholder(8), a.placeholder(9), a.placeholder(10), a.placeholder(11))
	_, err := a.db.ExecContext(ctx, q, h.ID, h.BoardID, h.Name, h.Category, h.EntityType, h.PositionQ, h.PositionR, h.Config, h.Status, h.CreatedAt, h.UpdatedAt)
	return err
}

func (a *SQLAdapter) UpdateHex(ctx context.Context, h *HexRecord) error {
	h.UpdatedAt = time.Now()
	q := fmt.Sprintf(`UPDATE hexes SET name=%s, config=%s, status=%s, updated_at=%s WHERE id=%s`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4), a.placeholder(5))
	_, err := a.db.ExecContext(ctx, q, h.Name, h.Config, h.Status, h.UpdatedAt, h.ID)
	if err == nil {
		a.notifyWatchers(h.BoardID, h.ID)
	}
	return err
}

func (a *SQLAdapter) DeleteHex(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM hexes WHERE id=%s`, a.placeholder(1))
	_, err := a.db.ExecContext(ctx, q, id)
	return err
}

func (a *SQLAdapter) GetConnection(ctx context.Context, id string) (*ConnectionRecord, error) {
	q := fmt.Sprintf(`SELECT id, board_id, from_hex_id, to_hex_id, connection_type FROM connections WHERE id=%s`, a.placeholder(1))
	row := a.db.QueryRowContext(ctx, q, id)
	var c ConnectionRecord
	var ct string
	if err := row.Scan(&c.ID, &c.BoardID, &c.FromHexID, &c.ToHexID, &ct); err != nil {
		if err == sql.ErrNoRows {
			return nil, hexerr.ErrNotFound
		}
		return nil, err
	}
	c.ConnectionType = ConnectionType(ct)
	return &c, nil
}

func (a *SQLAdapter) ListConnections(ctx context.Context, boardID string) ([]*ConnectionRecord, error) {
	q := fmt.Sprintf(`SELECT id, board_id, from_hex_id, to_hex_id, connection_type FROM connections WHERE board_id=%s`, a.placeholder(1))
	rows, err := a.db.QueryContext(ctx, q, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ConnectionRecord
	for rows.Next() {
		var c ConnectionRecord
		var ct string
		if err := rows.Scan(&c.ID, &c.BoardID, &c.FromHexID, &c.ToHexID, &ct); err != nil {
			return nil, err
		}
		c.ConnectionType = ConnectionType(ct)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (a *SQLAdapter) CreateConnection(ctx context.Context, c *ConnectionRecord) error {
	q := fmt.Sprintf(`INSERT INTO connections (id, board_id, from_hex_id, to_hex_id, connection_type) VALUES (%s,%s,%s,%s,%s)`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4), a.placeholder(5))
	_, err := a.db.ExecContext(ctx, q, c.ID, c.BoardID, c.FromHexID, c.ToHexID, string(c.ConnectionType))
	return err
}

func (a *SQLAdapter) DeleteConnection(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM connections WHERE id=%s`, a.placeholder(1))
	_, err := a.db.ExecContext(ctx, q, id)
	return err
}

func (a *SQLAdapter) ReadSetting(ctx context.Context, key string) (string, error) {
	q := fmt.Sprintf(`SELECT value FROM settings WHERE key=%s`, a.placeholder(1))
	var v string
	if err := a.db.QueryRowContext(ctx, q, key).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", hexerr.ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (a *SQLAdapter) WriteSetting(ctx context.Context, key, value string) error {
	switch a.dialect {
	case DialectPostgres:
		_, err := a.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ($1,$2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
		return err
	case DialectMySQL:
		_, err := a.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?,?) ON DUPLICATE KEY UPDATE value = VALUES(value)`, key, value)
		return err
	default:
		_, err := a.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		return err
	}
}

func (a *SQLAdapter) DeleteSetting(ctx context.Context, key string) error {
	q := fmt.Sprintf(`DELETE FROM settings WHERE key=%s`, a.placeholder(1))
	_, err := a.db.ExecContext(ctx, q, key)
	return err
}

func (a *SQLAdapter) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// AddBoardUsage atomically applies the usage delta and returns the new
// totals. Postgres and SQLite can do this in a single UPDATE ... RETURNING
// statement; MySQL lacks RETURNING on UPDATE so it wraps the update and a
// follow-up SELECT in a transaction to preserve atomicity.
func (a *SQLAdapter) AddBoardUsage(ctx context.Context, boardID string, deltaDollars float64, deltaTokens uint64) (float64, uint64, error) {
	switch a.dialect {
	case DialectMySQL:
		return a.addBoardUsageMySQL(ctx, boardID, deltaDollars, deltaTokens)
	default:
		return a.addBoardUsageReturning(ctx, boardID, deltaDollars, deltaTokens)
	}
}

func (a *SQLAdapter) addBoardUsageReturning(ctx context.Context, boardID string, deltaDollars float64, deltaTokens uint64) (float64, uint64, error) {
	q := fmt.Sprintf(
		`UPDATE boards SET total_dollars = total_dollars + %s, total_tokens = total_tokens + %s, updated_at = %s WHERE id = %s RETURNING total_dollars, total_tokens`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3), a.placeholder(4),
	)
	var dollars float64
	var tokens uint64
	err := a.db.QueryRowContext(ctx, q, deltaDollars, deltaTokens, time.Now(), boardID).Scan(&dollars, &tokens)
	if err == sql.ErrNoRows {
		return 0, 0, hexerr.ErrNotFound
	}
	return dollars, tokens, err
}

func (a *SQLAdapter) addBoardUsageMySQL(ctx context.Context, boardID string, deltaDollars float64, deltaTokens uint64) (float64, uint64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE boards SET total_dollars = total_dollars + ?, total_tokens = total_tokens + ?, updated_at = ? WHERE id = ?`,
		deltaDollars, deltaTokens, time.Now(), boardID); err != nil {
		return 0, 0, err
	}
	var dollars float64
	var tokens uint64
	if err := tx.QueryRowContext(ctx, `SELECT total_dollars, total_tokens FROM boards WHERE id = ?`, boardID).Scan(&dollars, &tokens); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, hexerr.ErrNotFound
		}
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return dollars, tokens, nil
}

func (a *SQLAdapter) ResetBoardUsage(ctx context.Context, boardID string) error {
	q := fmt.Sprintf(`UPDATE boards SET total_dollars = 0, total_tokens = 0, updated_at = %s WHERE id = %s`, a.placeholder(1), a.placeholder(2))
	_, err := a.db.ExecContext(ctx, q, time.Now(), boardID)
	return err
}

func (a *SQLAdapter) Watch(boardID string, fn func(hexID string)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers[boardID] = append(a.watchers[boardID], fn)
	idx := len(a.watchers[boardID]) - 1
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		list := a.watchers[boardID]
		if idx < len(list) {
			list[idx] = nil
		}
	}
}

func (a *SQLAdapter) notifyWatchers(boardID, hexID string) {
	a.mu.Lock()
	fns := append([]func(string){}, a.watchers[boardID]...)
	a.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(hexID)
		}
	}
}

func (a *SQLAdapter) Close() error { return a.db.Close() }
