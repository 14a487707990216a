// Package trace records recalculation dispatches with async persistence to a
// recalc_traces table.
//
// Every fact mutation fans out to one or more derived-record recomputations;
// the store captures each fan-out leg with its duration and outcome, without
// adding synchronous writes to the mutation's own transaction.
//
// Usage:
//
//	store := trace.NewStore(db)
//	store.Init()
//	defer store.Close()
package trace

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Entry is a single recalculation trace record.
type Entry struct {
	Fact       string // triggering fact kind
	Derived    string // recomputed derived record kind
	DurationUs int64
	Error      string
	Timestamp  int64 // unix microseconds
}

// Store persists recalculation trace entries asynchronously.
type Store struct {
	db   *sql.DB
	ch   chan *Entry
	done chan struct{}
	once sync.Once
}

const Schema = `
CREATE TABLE IF NOT EXISTS recalc_traces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fact TEXT NOT NULL,
	derived TEXT NOT NULL,
	duration_us INTEGER NOT NULL,
	error TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recalc_traces_ts ON recalc_traces(timestamp);
CREATE INDEX IF NOT EXISTS idx_recalc_traces_slow ON recalc_traces(duration_us) WHERE duration_us > 100000;
`

func NewStore(db *sql.DB) *Store {
	s := &Store{
		db:   db,
		ch:   make(chan *Entry, 1024),
		done: make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Record logs one recomputation leg with timing and optional error.
func (s *Store) Record(fact, derived string, d time.Duration, err error) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	} else if d > 100*time.Millisecond {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("component", "recalc"),
		slog.String("fact", fact),
		slog.String("derived", derived),
		slog.Duration("duration", d),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	slog.LogAttrs(context.Background(), level, "RECALC", attrs...)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	s.recordAsync(&Entry{
		Fact:       fact,
		Derived:    derived,
		DurationUs: d.Microseconds(),
		Error:      errMsg,
		Timestamp:  time.Now().UnixMicro(),
	})
}

func (s *Store) recordAsync(e *Entry) {
	select {
	case s.ch <- e:
	default:
		// buffer full — drop to avoid backpressure
	}
}

func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return nil
}

func (s *Store) flushLoop() {
	defer close(s.done)
	batch := make([]*Entry, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("trace store: begin tx", "error", err)
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO recalc_traces (fact, derived, duration_us, error, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("trace store: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.Fact, e.Derived, e.DurationUs, e.Error, e.Timestamp); err != nil {
			slog.Error("trace store: insert", "error", err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("trace store: commit", "error", err)
	}
}
