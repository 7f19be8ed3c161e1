// Package session drives one editing session over an archive: discovery
// fills the string table, edits update it, and Save writes a new archive.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jarstrings/internal/discovery"
	"jarstrings/internal/jar"
	"jarstrings/internal/strtable"
)

var ErrNotReady = errors.New("session: not ready")

// State is the lifecycle position of a session.
type State int

const (
	StateEmpty State = iota
	StateDiscovering
	StateReady
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDiscovering:
		return "discovering"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Policy decides what Save does with an entry that cannot be encoded.
type Policy int

const (
	PolicyFail Policy = iota // abort the save
	PolicySkip               // keep the entry unchanged and report it
)

// Options configures a session.
type Options struct {
	Discovery discovery.Options
	Workers   int // parallel encoders during Save; <1 means 1
	OnError   Policy
	Logger    *slog.Logger
}

// Session owns the archive and the string table.
type Session struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	state   State
	gen     int
	archive *jar.Archive
	table   *strtable.Table
	errs    []error
}

func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Discovery.Logger == nil {
		opts.Discovery.Logger = log
	}
	return &Session{opts: opts, log: log, table: strtable.New()}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Errors returns the entry errors reported by the last discovery.
func (s *Session) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// Load replaces the session contents with the strings of a. Discovery runs
// in the caller's goroutine; events are forwarded to sink, which may be nil.
// Rows become visible in the table as they are found, but Filter, Update
// and Save are refused until discovery completes.
func (s *Session) Load(ctx context.Context, a *jar.Archive, sink discovery.Sink) (discovery.Stats, error) {
	table := strtable.New()
	s.mu.Lock()
	if s.state == StateDiscovering {
		s.mu.Unlock()
		return discovery.Stats{}, errors.New("session: discovery already running")
	}
	s.gen++
	gen := s.gen
	s.state = StateDiscovering
	s.archive = a
	s.table = table
	s.errs = nil
	s.mu.Unlock()

	if sink == nil {
		sink = discovery.SinkFuncs{}
	}
	var appendErr error
	tee := discovery.SinkFuncs{
		OnFound: func(fs strtable.FoundString) {
			if err := table.Append(fs); err != nil && appendErr == nil {
				appendErr = err
			}
			sink.Found(fs)
		},
		OnProgress: sink.Progress,
		OnError: func(entry string, err error) {
			s.mu.Lock()
			if s.gen == gen {
				s.errs = append(s.errs, err)
			}
			s.mu.Unlock()
			sink.Error(entry, err)
		},
		OnFinish: sink.Finish,
	}

	stats, err := discovery.Run(ctx, a, s.opts.Discovery, tee)
	if err == nil {
		err = appendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Reset while running; the results belong to nobody.
		return stats, err
	}
	switch {
	case err == nil:
		s.state = StateReady
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.state = StateCanceled
	default:
		s.state = StateFailed
	}
	return stats, err
}

// Reset discards the archive and table and returns to the empty state. A
// discovery still running keeps going but its results are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateEmpty
	s.archive = nil
	s.table = strtable.New()
	s.errs = nil
}

// ready returns the table and archive if the session is ready.
func (s *Session) ready() (*strtable.Table, *jar.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotReady, s.state)
	}
	return s.table, s.archive, nil
}

// Len returns the number of rows found so far.
func (s *Session) Len() int {
	s.mu.Lock()
	t := s.table
	s.mu.Unlock()
	return t.Len()
}

// Get returns one row.
func (s *Session) Get(id int) (strtable.FoundString, bool) {
	s.mu.Lock()
	t := s.table
	s.mu.Unlock()
	return t.Get(id)
}

// FilterResult is the answer to a filter query.
type FilterResult struct {
	Rows  []strtable.FoundString
	Total int
	Took  time.Duration
}

// Filter runs q over a snapshot of the table.
func (s *Session) Filter(q strtable.Query) (FilterResult, error) {
	t, _, err := s.ready()
	if err != nil {
		return FilterResult{}, err
	}
	start := time.Now()
	rows := t.Snapshot()
	out := strtable.Filter(rows, q)
	return FilterResult{Rows: out, Total: len(rows), Took: time.Since(start)}, nil
}

// Update sets the text of row id. It reports whether the value changed.
func (s *Session) Update(id int, text string) (bool, error) {
	t, _, err := s.ready()
	if err != nil {
		return false, err
	}
	return t.Update(id, text)
}

// Changed returns the edited rows in table order.
func (s *Session) Changed() ([]strtable.FoundString, error) {
	t, _, err := s.ready()
	if err != nil {
		return nil, err
	}
	return t.Changed(), nil
}
