package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexeynavarkin/s3index/internal/repository/index_repo"
)

var (
	ColorPrimary = lipgloss.Color("#8B5CF6")
	ColorSuccess = lipgloss.Color("#22C55E")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorError   = lipgloss.Color("#EF4444")
	ColorInfo    = lipgloss.Color("#3B82F6")
	ColorSubtle  = lipgloss.Color("#6B7280")
)

const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
	SymbolInfo    = "→"
)

var (
	BrandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorSubtle)

	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// Printer writes styled, user-facing lines to w.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", SuccessStyle.Render(SymbolSuccess), fmt.Sprintf(format, args...))
}

func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", InfoStyle.Render(SymbolInfo), fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", WarningStyle.Render(SymbolWarning), WarningStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", ErrorStyle.Render(SymbolError), ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(err error) {
	p.Errorf("%s", err.Error())
}

// JSON writes v indented.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type Table struct {
	Headers []string
	Rows    [][]string
	Widths  []int
}

func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{
		Headers: headers,
		Widths:  widths,
	}
}

func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
			t.Widths[i] = max(t.Widths[i], lipgloss.Width(cells[i]))
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Print(w io.Writer) {
	if len(t.Rows) == 0 {
		return
	}

	fmt.Fprint(w, "  ")
	for i, h := range t.Headers {
		fmt.Fprint(w, TableHeaderStyle.Width(t.Widths[i]+2).Render(h))
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "  ")
	for i := range t.Headers {
		fmt.Fprint(w, DimStyle.Render(strings.Repeat("─", t.Widths[i])), "  ")
	}
	fmt.Fprintln(w)

	for _, row := range t.Rows {
		fmt.Fprint(w, "  ")
		for i, cell := range row {
			fmt.Fprint(w, TableCellStyle.Width(t.Widths[i]+2).Render(cell))
		}
		fmt.Fprintln(w)
	}
}

type searchResult struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	LastModified string `json:"last_modified"`
}

func toSearchResults(objs []index_repo.Object) []searchResult {
	out := make([]searchResult, 0, len(objs))
	for _, o := range objs {
		out = append(out, searchResult{Bucket: o.Bucket, Key: o.Key, LastModified: o.LastModified})
	}
	return out
}

// consoleObserver reports indexing progress the way an operator reads it.
type consoleObserver struct {
	p *Printer
}

func (o consoleObserver) ContainerStarted(container string) {
	o.p.Infof("Listing keys from bucket: %s", container)
}

func (o consoleObserver) ListFailed(container string, err error) {
	o.p.Errorf("Error accessing bucket %s: %v", container, err)
}

func (o consoleObserver) RowFailed(rowErr index_repo.RowError) {
	o.p.Warnf("Error saving key %s: %v", rowErr.Object.Key, rowErr.Err)
}

func (o consoleObserver) BatchSaved(n int, container string, res index_repo.SaveResult, totalInserted int) {
	if res.Skipped > 0 {
		o.p.Successf("Batch %d: Saved %d keys, skipped %d existing keys (Total saved: %d)", n, res.Inserted, res.Skipped, totalInserted)
		return
	}
	o.p.Successf("Batch %d: Saved %d keys (Total: %d)", n, res.Inserted, totalInserted)
}
