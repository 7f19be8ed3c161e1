// Package output writes jarstrings results to files and streams.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/strtable"
)

// Display escapes control characters and truncates s to maxLen bytes
// (0 = unlimited) on a rune boundary. The second result reports truncation.
func Display(s string, maxLen int) (string, bool) {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	if maxLen <= 0 || len(s) <= maxLen {
		return s, false
	}
	cut := 0
	for i := range s {
		if i > maxLen {
			break
		}
		cut = i
	}
	return s[:cut], true
}

// WriteStringsText prints one line per row: id, context and the escaped
// value.
func WriteStringsText(w io.Writer, rows []strtable.FoundString, maxLen int) error {
	for _, r := range rows {
		display, truncated := Display(r.Value, maxLen)
		suffix := ""
		if truncated {
			suffix = "..."
		}
		mark := " "
		if r.Changed {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%5d%s %-60s %q%s\n", r.ID, mark, r.Context.String(), display, suffix); err != nil {
			return err
		}
	}
	return nil
}

// WriteStringsJSONL writes one JSON object per row.
func WriteStringsJSONL(w io.Writer, rows []strtable.FoundString) error {
	enc := json.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return fmt.Errorf("output: encode row %d: %w", rows[i].ID, err)
		}
	}
	return nil
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}

// WriteASM writes a method listing to asm/<name>.txt under dir. name may
// contain path separators for grouping by class.
func WriteASM(dir, name string, insts []bytecode.Inst, annotators ...bytecode.Annotator) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}
	return os.WriteFile(path, []byte(bytecode.Format(insts, annotators...)), 0644)
}

// WriteDOT writes a rendered graph to <dir>/<name>.dot.
func WriteDOT(dir, name, dot string) (string, error) {
	path := filepath.Join(dir, name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	return path, nil
}

// SafeName turns a method or class name into a relative file path.
func SafeName(s string) string {
	r := strings.NewReplacer(":", "_", "(", "_", ")", "_", ";", "_", "<", "_", ">", "_", "[", "_", "$", "_", " ", "_")
	return r.Replace(s)
}
