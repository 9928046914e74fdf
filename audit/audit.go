// Package audit persists an operation-level trail of persona requests in
// SQLite. Entries are buffered and flushed in batches so the request path
// never blocks on the audit database.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/figurant/dbopen"
	"github.com/hazyhaar/figurant/idgen"
	"github.com/hazyhaar/figurant/kit"
)

// Entry is one audited operation.
type Entry struct {
	EntryID   string
	Timestamp int64 // unix milliseconds

	Action    string // e.g. "generate_personas", "enrich_sheet", "chat"
	SessionID string
	TraceID   string
	Transport string // "http", "mcp"

	Parameters string // JSON
	Result     string // JSON
	Error      string
	DurationMs int64

	Status string // "success", "error"
}

const (
	batchSize     = 32
	flushInterval = 5 * time.Second
)

// SQLiteLogger writes audit entries to an audit_log table.
type SQLiteLogger struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan *Entry
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator overrides the entry ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// NewSQLiteLogger creates an audit logger over db. Call Init before
// logging and Close to drain the buffer on shutdown.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
		ch:    make(chan *Entry, 256),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Init creates the audit_log table. Idempotent.
func (l *SQLiteLogger) Init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			entry_id      TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			action        TEXT NOT NULL,
			session_id    TEXT NOT NULL DEFAULT '',
			trace_id      TEXT NOT NULL DEFAULT '',
			transport     TEXT NOT NULL DEFAULT 'http',
			parameters    TEXT NOT NULL DEFAULT '',
			result        TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'success'
		);
		CREATE INDEX IF NOT EXISTS idx_audit_log_time ON audit_log(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_log_session ON audit_log(session_id);
	`)
	if err != nil {
		return fmt.Errorf("init audit_log: %w", err)
	}
	return nil
}

// Log inserts an entry synchronously.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	return l.insert(ctx, e)
}

// LogAsync queues an entry for batched persistence. Falls back to a
// synchronous insert when the buffer is full.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(e)
	select {
	case l.ch <- e:
	default:
		slog.Warn("audit buffer full, sync fallback", "action", e.Action)
		if err := l.insert(context.Background(), e); err != nil {
			slog.Error("audit sync fallback failed", "error", err)
		}
	}
}

// Close drains the buffer and stops the flush goroutine.
func (l *SQLiteLogger) Close() error {
	close(l.stop)
	<-l.done
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.Transport == "" {
		e.Transport = "http"
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

const insertEntrySQL = `INSERT INTO audit_log
	(entry_id, timestamp, action, session_id, trace_id, transport,
	 parameters, result, error_message, duration_ms, status)
	VALUES (?,?,?,?,?,?,?,?,?,?,?)`

func entryArgs(e *Entry) []any {
	return []any{
		e.EntryID, e.Timestamp, e.Action, e.SessionID, e.TraceID, e.Transport,
		e.Parameters, e.Result, e.Error, e.DurationMs, e.Status,
	}
}

// insert writes one entry with busy-retry: the flush goroutine and sync
// fallbacks share the audit DB with nothing else, but WAL writers can
// still collide under load.
func (l *SQLiteLogger) insert(ctx context.Context, e *Entry) error {
	_, err := dbopen.Exec(ctx, l.db, insertEntrySQL, entryArgs(e)...)
	return err
}

func (l *SQLiteLogger) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	batch := make([]*Entry, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
			for _, e := range batch {
				if _, err := tx.ExecContext(ctx, insertEntrySQL, entryArgs(e)...); err != nil {
					return fmt.Errorf("insert %s: %w", e.EntryID, err)
				}
			}
			return nil
		})
		if err != nil {
			slog.Error("audit flush failed, dropping batch", "error", err, "entries", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Middleware audits an Endpoint: one entry per call, queued async so the
// caller never waits on the audit database.
func Middleware(l *SQLiteLogger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			e := &Entry{
				Action:     action,
				SessionID:  kit.GetSessionID(ctx),
				TraceID:    kit.GetTraceID(ctx),
				Transport:  kit.GetTransport(ctx),
				DurationMs: time.Since(start).Milliseconds(),
			}
			if req != nil {
				if b, mErr := json.Marshal(req); mErr == nil {
					e.Parameters = string(b)
				}
			}
			if err != nil {
				e.Error = err.Error()
			} else if resp != nil {
				if b, mErr := json.Marshal(resp); mErr == nil {
					e.Result = string(b)
				}
			}
			l.LogAsync(e)

			return resp, err
		}
	}
}
