// Package discovery scans every class in an archive for string literal
// loads and reports them as events.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/classfile"
	"jarstrings/internal/classfmt"
	"jarstrings/internal/strkind"
	"jarstrings/internal/strtable"
)

// Source supplies archive entries.
type Source interface {
	Entries() []string
	ReadEntry(name string) ([]byte, error)
}

// Sink receives discovery events. All Found events for an entry precede
// that entry's Progress event; Finish is the last event of a completed run.
type Sink interface {
	Found(fs strtable.FoundString)
	Progress(done, total int)
	Error(entry string, err error)
	Finish()
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnFound    func(fs strtable.FoundString)
	OnProgress func(done, total int)
	OnError    func(entry string, err error)
	OnFinish   func()
}

func (s SinkFuncs) Found(fs strtable.FoundString) {
	if s.OnFound != nil {
		s.OnFound(fs)
	}
}

func (s SinkFuncs) Progress(done, total int) {
	if s.OnProgress != nil {
		s.OnProgress(done, total)
	}
}

func (s SinkFuncs) Error(entry string, err error) {
	if s.OnError != nil {
		s.OnError(entry, err)
	}
}

func (s SinkFuncs) Finish() {
	if s.OnFinish != nil {
		s.OnFinish()
	}
}

// EntryError is a non-fatal failure on one archive entry.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string { return fmt.Sprintf("%s: %v", e.Entry, e.Err) }
func (e *EntryError) Unwrap() error { return e.Err }

// Options controls a discovery run.
type Options struct {
	Include []string // doublestar patterns; empty means DefaultInclude
	Exclude []string
	Mode    classfmt.Mode // bytecode decoding mode
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Stats summarizes a run.
type Stats struct {
	Classes  int           `json:"classes"`
	Strings  int           `json:"strings"`
	Skipped  int           `json:"skipped"`
	Diags    int           `json:"diags"`
	Duration time.Duration `json:"duration"`

	// UnknownOpcodes counts methods cut short at an opcode the decoder
	// does not know, usually a newer class file version.
	UnknownOpcodes int `json:"unknown_opcodes"`
}

// Run scans the selected class entries of src in archive order.
//
// Identifiers are assigned from a single counter starting at 0, in emission
// order. An entry's strings are emitted only after the whole entry decoded
// and scanned. Malformed entries are reported through Sink.Error and
// skipped. If ctx is cancelled, Run stops before the next entry and returns
// ctx.Err() without calling Finish.
func Run(ctx context.Context, src Source, opts Options, sink Sink) (Stats, error) {
	log := opts.logger()
	start := time.Now()
	var stats Stats

	names, err := SelectEntries(src.Entries(), opts.Include, opts.Exclude)
	if err != nil {
		return stats, err
	}
	total := len(names)
	log.Info("discovery started", "classes", total)

	nextID := 0
	for done, name := range names {
		if err := ctx.Err(); err != nil {
			log.Info("discovery cancelled", "done", done, "total", total)
			return stats, err
		}

		hits, diags, err := scanEntry(src, name, opts.Mode)
		stats.Diags += diags.Len()
		stats.UnknownOpcodes += diags.Count(classfmt.DiagUnknownOpcode)
		for _, d := range diags.Items() {
			log.Debug("bytecode diagnostic", "entry", name, "diag", d.String())
		}
		if err != nil {
			stats.Skipped++
			log.Warn("skipping entry", "entry", name, "error", err)
			sink.Error(name, &EntryError{Entry: name, Err: err})
		} else {
			stats.Classes++
			for _, fs := range hits {
				fs.ID = nextID
				nextID++
				sink.Found(fs)
			}
			stats.Strings += len(hits)
		}
		sink.Progress(done+1, total)
	}

	stats.Duration = time.Since(start)
	log.Info("discovery finished",
		"classes", stats.Classes,
		"strings", stats.Strings,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)
	sink.Finish()
	return stats, nil
}

// scanEntry decodes one class and returns its string loads without IDs.
func scanEntry(src Source, name string, mode classfmt.Mode) ([]strtable.FoundString, *classfmt.Diags, error) {
	diags := &classfmt.Diags{}
	data, err := src.ReadEntry(name)
	if err != nil {
		return nil, diags, err
	}
	cf, err := classfile.Decode(data)
	if err != nil {
		return nil, diags, err
	}
	hits, err := ScanClass(cf, name, bytecode.Options{Mode: mode, Diags: diags})
	return hits, diags, err
}

// ScanClass finds every string literal load in cf. The returned rows have
// no ID assigned.
func ScanClass(cf *classfile.ClassFile, entry string, opts bytecode.Options) ([]strtable.FoundString, error) {
	var hits []strtable.FoundString
	for mi := range cf.Methods {
		m := &cf.Methods[mi]
		if !m.HasCode() {
			continue
		}
		if opts.Diags != nil {
			opts.Diags.Enter(m.Name + m.Descriptor)
		}
		insts, err := bytecode.Decode(m.Code, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: method %s%s: %v", classfile.ErrMalformed, m.Name, m.Descriptor, err)
		}
		for i, idx := range bytecode.StringRefs(cf.Pool, insts) {
			utf8, _ := cf.Pool.StringTarget(idx)
			value := cf.Pool.Text(utf8)
			hits = append(hits, strtable.FoundString{
				Entry:      entry,
				Class:      cf.QualifiedName(),
				Method:     m.Name,
				Descriptor: m.Descriptor,
				InstIndex:  i,
				Offset:     insts[i].Offset,
				Pool:       idx,
				Utf8:       utf8,
				Value:      value,
				Original:   value,
				Context:    bytecode.ResolveContext(cf, m, insts, i),
				Kinds:      strkind.Classify(value),
			})
		}
	}
	return hits, nil
}
