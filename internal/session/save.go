package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jarstrings/internal/classfile"
	"jarstrings/internal/jar"
	"jarstrings/internal/strtable"
)

// SkippedEntry is an entry left unchanged by Save under PolicySkip.
type SkippedEntry struct {
	Entry string `json:"entry"`
	Err   error  `json:"-"`
}

// SaveResult is a written archive.
type SaveResult struct {
	Archive  []byte
	Digest   uint64
	Modified []string // entries replaced, in archive order
	Skipped  []SkippedEntry
	Edits    int // rows applied
	Took     time.Duration
}

type entryEdits struct {
	entry string
	edits []classfile.Edit
}

// groupEdits collects changed rows per entry, in first-seen order.
func groupEdits(rows []strtable.FoundString) []entryEdits {
	var out []entryEdits
	idx := map[string]int{}
	for _, r := range rows {
		i, ok := idx[r.Entry]
		if !ok {
			i = len(out)
			idx[r.Entry] = i
			out = append(out, entryEdits{entry: r.Entry})
		}
		out[i].edits = append(out[i].edits, classfile.Edit{ID: r.ID, Pool: r.Pool, Text: r.Value})
	}
	return out
}

// Save writes a new archive with every changed string applied. Each
// affected class is decoded again from the archive and re-encoded; all
// other entries are copied unchanged. The session keeps its table, so
// saving twice yields identical bytes.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	t, a, err := s.ready()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows := t.Changed()
	groups := groupEdits(rows)

	workers := s.opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		repl    = make(map[string][]byte, len(groups))
		skipped = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, grp := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, changed, err := encodeEntry(a, grp)
			if err != nil {
				if s.opts.OnError == PolicySkip {
					s.log.Warn("leaving entry unchanged", "entry", grp.entry, "error", err)
					mu.Lock()
					skipped[grp.entry] = err
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("session: %s: %w", grp.entry, err)
			}
			if changed {
				mu.Lock()
				repl[grp.entry] = out
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := a.Write(repl)
	if err != nil {
		return nil, err
	}
	digest, err := jar.Digest(data)
	if err != nil {
		return nil, fmt.Errorf("session: digest: %w", err)
	}

	res := &SaveResult{Archive: data, Digest: digest, Took: time.Since(start)}
	for _, name := range a.Entries() {
		if _, ok := repl[name]; ok {
			res.Modified = append(res.Modified, name)
		}
		if err, ok := skipped[name]; ok {
			res.Skipped = append(res.Skipped, SkippedEntry{Entry: name, Err: err})
		}
	}
	for _, grp := range groups {
		if _, ok := skipped[grp.entry]; !ok {
			res.Edits += len(grp.edits)
		}
	}
	s.log.Info("archive written",
		"modified", len(res.Modified),
		"skipped", len(res.Skipped),
		"bytes", len(data),
		"digest", fmt.Sprintf("%016x", digest),
	)
	return res, nil
}

func encodeEntry(a *jar.Archive, grp entryEdits) ([]byte, bool, error) {
	data, err := a.ReadEntry(grp.entry)
	if err != nil {
		return nil, false, err
	}
	cf, err := classfile.Decode(data)
	if err != nil {
		return nil, false, err
	}
	out, err := classfile.Encode(cf, grp.edits)
	if err != nil {
		return nil, false, err
	}
	return out, !bytes.Equal(out, data), nil
}
