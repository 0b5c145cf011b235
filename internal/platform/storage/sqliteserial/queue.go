package sqliteserial

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/feedcache/internal/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/louisbranch/feedcache/internal/platform/storage/sqliteserial"

// ErrClosed reports work submitted after Close.
var ErrClosed = apperrors.New(apperrors.CodeStoreClosed, "storage context is closed")

// Work is one unit of work. Returning nil commits tx; returning an error rolls
// it back.
type Work func(ctx context.Context, tx *sql.Tx) error

type job struct {
	name string
	work Work
	done func(error)
}

type outcome struct {
	done func(error)
	err  error
}

// Queue serializes units of work against one connection.
//
// Units run on a worker goroutine; completions are delivered in the same
// order from a separate goroutine, so a completion may submit work or call
// Close.
type Queue struct {
	conn   *sql.Conn
	tracer trace.Tracer

	jobs     *fifo[job]
	outcomes *fifo[outcome]
	stopped  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New starts a queue that owns conn. The queue closes conn on Close.
func New(conn *sql.Conn) *Queue {
	q := &Queue{
		conn:     conn,
		tracer:   otel.Tracer(instrumentationName),
		jobs:     newFIFO[job](),
		outcomes: newFIFO[outcome](),
		stopped:  make(chan struct{}),
	}
	go q.run()
	go q.deliver()
	return q
}

// Perform schedules work and returns without waiting for it. done, when not
// nil, is called exactly once after the unit's transaction has finished.
// After Close, done is called immediately with ErrClosed.
func (q *Queue) Perform(name string, work Work, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	if work == nil {
		done(apperrors.New(apperrors.CodeEngineFailure, "unit of work is required"))
		return
	}
	if !q.jobs.push(job{name: name, work: work, done: done}) {
		done(ErrClosed)
	}
}

// Close stops accepting work, waits for every submitted unit to finish, and
// releases the connection. Completions of those units may still be running
// when Close returns.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.jobs.close()
		<-q.stopped
		if q.conn != nil {
			q.closeErr = q.conn.Close()
		}
	})
	return q.closeErr
}

func (q *Queue) run() {
	defer close(q.stopped)
	defer q.outcomes.close()
	for {
		j, ok := q.jobs.pop()
		if !ok {
			return
		}
		q.outcomes.push(outcome{done: j.done, err: q.execute(j)})
	}
}

func (q *Queue) deliver() {
	for {
		o, ok := q.outcomes.pop()
		if !ok {
			return
		}
		o.done(o.err)
	}
}

func (q *Queue) execute(j job) (err error) {
	ctx, span := q.tracer.Start(context.Background(), "feedcache."+j.name,
		trace.WithAttributes(attribute.String("feedcache.operation", j.name)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if q.conn == nil {
		return apperrors.New(apperrors.CodeEngineFailure, "storage connection is not configured")
	}

	tx, err := q.conn.BeginTx(ctx, nil)
	if err != nil {
		return engineFailure(j.name, "begin", err)
	}
	if err := runWork(ctx, tx, j.work); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !isNoTransaction(rollbackErr) {
			log.Printf("feed cache %s: rollback: %v", j.name, rollbackErr)
		}
		return engineFailure(j.name, "run", err)
	}
	if err := tx.Commit(); err != nil {
		q.resetSession(j.name)
		return engineFailure(j.name, "commit", err)
	}
	return nil
}

// resetSession ends a transaction SQLite kept open after a failed COMMIT so
// the next unit starts from autocommit.
func (q *Queue) resetSession(name string) {
	if _, err := q.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil && !isNoTransaction(err) {
		log.Printf("feed cache %s: reset session after failed commit: %v", name, err)
	}
}

func runWork(ctx context.Context, tx *sql.Tx, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit of work panicked: %v", r)
		}
	}()
	return work(ctx, tx)
}

// engineFailure classifies err as an engine failure unless it already
// carries a domain code.
func engineFailure(name, step string, err error) error {
	if apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.WrapWithMetadata(
		apperrors.CodeEngineFailure,
		fmt.Sprintf("%s %s", step, name),
		map[string]string{"operation": name, "step": step},
		err,
	)
}

func isNoTransaction(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no transaction is active")
}
