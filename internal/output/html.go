package output

import (
	"cmp"
	"fmt"
	"html"
	"io"
	"slices"
	"strings"

	"jarstrings/internal/strtable"
)

// Theme holds report colors.
type Theme struct {
	Background string
	Text       string
	Muted      string
	Accent     string
	Changed    string

	// Bar colors by string kind.
	Kinds map[string]string
}

// NASA is the default theme: monochrome with sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	Text:       "#1A1A1A",
	Muted:      "#9E9E9E",
	Accent:     "#0B3D91", // NASA blue
	Changed:    "#FC3D21", // NASA red

	Kinds: map[string]string{
		"text":       "#0B3D91",
		"format":     "#00695C",
		"url":        "#E65100",
		"host":       "#E65100",
		"file":       "#424242",
		"identifier": "#9E9E9E",
		"base64":     "#9E9E9E",
		"markup":     "#00695C",
		"sql":        "#424242",
		"empty":      "#ECEFF1",
	},
}

// Report is the input to WriteReportHTML.
type Report struct {
	Title   string
	Archive string
	Digest  uint64
	Entries int // class entries in the archive
	Skipped []string
	Rows    []strtable.FoundString
}

type count struct {
	Name  string
	Count int
}

// topCounts sorts by count descending, then name.
func topCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{k, v})
	}
	slices.SortFunc(out, func(a, b count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func barWidth(n, top, width int) int {
	if top == 0 {
		return 0
	}
	return max(n*width/top, 2)
}

// WriteReportHTML writes a self-contained page listing every string with a
// summary by kind and by class. The search box filters rows client side.
func WriteReportHTML(w io.Writer, r Report, theme Theme) error {
	kinds := make(map[string]int)
	classes := make(map[string]int)
	changed := 0
	for _, row := range r.Rows {
		for _, k := range row.Kinds {
			kinds[k]++
		}
		classes[row.Class]++
		if row.Changed {
			changed++
		}
	}

	ew := &errWriter{w: w}
	title := html.EscapeString(r.Title)
	ew.printf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: %s; background: %s; margin: 2em; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; vertical-align: top; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
td.val { font-family: "Courier New", monospace; white-space: pre-wrap; word-break: break-all; }
tr.changed td.val { color: %s; }
.ctx { color: %s; font-size: 12px; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.file-info { color: %s; font-size: 12px; }
#q { width: 480px; max-width: 100%%; padding: 4px 8px; font: inherit; }
</style>
</head>
<body>
`, title, theme.Text, theme.Background, theme.Changed, theme.Muted, theme.Muted)

	ew.printf("<h1>%s</h1>\n", title)
	ew.printf("<p class=\"file-info\">%s <span>%016x</span></p>\n", html.EscapeString(r.Archive), r.Digest)

	ew.printf("<h2>Summary</h2>\n<table>\n")
	ew.printf("<tr><td>Classes</td><td class=\"num\">%d</td></tr>\n", r.Entries)
	ew.printf("<tr><td>Classes with strings</td><td class=\"num\">%d</td></tr>\n", len(classes))
	ew.printf("<tr><td>Strings</td><td class=\"num\">%d</td></tr>\n", len(r.Rows))
	ew.printf("<tr><td>Changed</td><td class=\"num\">%d</td></tr>\n", changed)
	ew.printf("<tr><td>Skipped entries</td><td class=\"num\">%d</td></tr>\n", len(r.Skipped))
	ew.printf("</table>\n")

	if len(kinds) > 0 {
		ew.printf("<h2>Kinds</h2>\n<table>\n")
		top := topCounts(kinds)
		for _, kc := range top {
			color := theme.Kinds[kc.Name]
			if color == "" {
				color = theme.Accent
			}
			ew.printf("<tr><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
				html.EscapeString(kc.Name), kc.Count, barWidth(kc.Count, top[0].Count, 200), color)
		}
		ew.printf("</table>\n")
	}

	if len(classes) > 0 {
		ew.printf("<h2>Top Classes</h2>\n<table>\n")
		top := topCounts(classes)
		limit := min(len(top), 20)
		for _, cc := range top[:limit] {
			ew.printf("<tr><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
				html.EscapeString(cc.Name), cc.Count, barWidth(cc.Count, top[0].Count, 120), theme.Accent)
		}
		if len(top) > limit {
			ew.printf("<tr><td>... and %d more</td></tr>\n", len(top)-limit)
		}
		ew.printf("</table>\n")
	}

	if len(r.Skipped) > 0 {
		ew.printf("<h2>Skipped</h2>\n<table>\n")
		for _, s := range r.Skipped {
			ew.printf("<tr><td>%s</td></tr>\n", html.EscapeString(s))
		}
		ew.printf("</table>\n")
	}

	ew.printf("<h2>Strings</h2>\n<p><input id=\"q\" type=\"search\" placeholder=\"filter\"></p>\n")
	ew.printf("<table id=\"strings\">\n<tr><th>ID</th><th>Location</th><th>Kinds</th><th>Value</th></tr>\n")
	for _, row := range r.Rows {
		class := ""
		if row.Changed {
			class = ` class="changed"`
		}
		ew.printf("<tr%s><td class=\"num\">%d</td><td>%s.%s<div class=\"ctx\">%s</div></td><td>%s</td><td class=\"val\">%s</td></tr>\n",
			class, row.ID,
			html.EscapeString(row.Class), html.EscapeString(row.Method),
			html.EscapeString(row.Context),
			html.EscapeString(strings.Join(row.Kinds, " ")),
			html.EscapeString(row.Value))
	}
	ew.printf("</table>\n")

	ew.printf(`<script>
document.getElementById("q").addEventListener("input", function (e) {
  var toks = e.target.value.toLowerCase().split(/\s+/).filter(Boolean);
  document.querySelectorAll("#strings tr").forEach(function (tr, i) {
    if (i === 0) return;
    var v = tr.lastElementChild.textContent.toLowerCase();
    tr.style.display = toks.every(function (t) { return v.indexOf(t) >= 0; }) ? "" : "none";
  });
});
</script>
</body></html>
`)
	return ew.err
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
