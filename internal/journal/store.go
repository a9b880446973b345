// Package journal keeps an operator log of completed chat turns in SQLite
// or PostgreSQL. It is write-mostly; chat transcripts are never rebuilt
// from it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// OutcomeOK marks a successful turn. Failed turns carry the error kind.
const OutcomeOK = "ok"

// Turn is one journaled request/response exchange.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Source    string    `json:"source"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Transport string    `json:"transport,omitempty"`
	Model     string    `json:"model,omitempty"`
	Tools     int       `json:"tools"`
	Duration  int64     `json:"duration_ms"`
	At        time.Time `json:"at"`
}

// Store persists turns.
type Store struct {
	db         *sql.DB
	isPostgres bool
}

// Open opens the journal named by dsn. A dsn starting with "postgres://" or
// "postgresql://" selects PostgreSQL (pgx); anything else is a SQLite file
// path.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "pgagent.db"
	}
	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var (
		db  *sql.DB
		err error
	)
	if isPostgres {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}
	} else {
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create journal directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := createTables(db, isPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, isPostgres: isPostgres}, nil
}

// IsPostgres reports whether the store is backed by PostgreSQL.
func (s *Store) IsPostgres() bool { return s.isPostgres }

func createTables(db *sql.DB, isPostgres bool) error {
	pkDef := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres {
		pkDef = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS chat_turns (
		id %s,
		turn_id TEXT UNIQUE NOT NULL,
		session_id TEXT,
		source TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT,
		outcome TEXT NOT NULL,
		error TEXT,
		transport TEXT,
		model TEXT,
		tool_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_outcome ON chat_turns(outcome);
	`, pkDef)

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordTurn stores t, filling ID and At when unset.
func (s *Store) RecordTurn(ctx context.Context, t Turn) error {
	if t.ID == "" {
		t.ID = "turn_" + uuid.NewString()[:8]
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, rebind(s.isPostgres, `
		INSERT INTO chat_turns (turn_id, session_id, source, question, answer, outcome, error, transport, model, tool_count, duration_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.SessionID, t.Source, t.Question, t.Answer, t.Outcome, t.Error, t.Transport, t.Model, t.Tools, t.Duration, t.At.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.isPostgres, `
		SELECT turn_id, session_id, source, question, answer, outcome, error, transport, model, tool_count, duration_ms, at
		FROM chat_turns ORDER BY id DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t                                           Turn
			sessionID, answer, errMsg, transport, model sql.NullString
			at                                          string
		)
		if err := rows.Scan(&t.ID, &sessionID, &t.Source, &t.Question, &answer, &t.Outcome, &errMsg, &transport, &model, &t.Tools, &t.Duration, &at); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.SessionID = sessionID.String
		t.Answer = answer.String
		t.Error = errMsg.String
		t.Transport = transport.String
		t.Model = model.String
		t.At, _ = time.Parse(time.RFC3339Nano, at)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func rebind(isPostgres bool, query string) string {
	if !isPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
