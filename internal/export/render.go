package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/demostat/lifedecomp/internal/errors"
)

// DefaultPrecision is the number of decimals shown in table output.
const DefaultPrecision = 4

// missingCell is shown in tables for an undefined value.
const missingCell = "n/a"

// Renderer writes reports in one Format.
type Renderer struct {
	format    Format
	precision int
	width     int
	printer   *message.Printer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPrecision sets the decimals shown in table output. Machine-readable
// formats always carry full precision.
func WithPrecision(p int) Option {
	return func(r *Renderer) {
		if p >= 0 {
			r.precision = p
		}
	}
}

// WithWidth caps the rendered table width; zero leaves it unbounded.
func WithWidth(w int) Option {
	return func(r *Renderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// NewRenderer creates a renderer for f.
func NewRenderer(f Format, opts ...Option) *Renderer {
	r := &Renderer{
		format:    f,
		precision: DefaultPrecision,
		printer:   message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes rep to w.
func (r *Renderer) Render(w io.Writer, rep Report) error {
	switch r.format {
	case FormatTable:
		return r.renderTable(w, rep.grid())
	case FormatCSV:
		return renderCSV(w, rep.grid())
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(rep)
	}
	return errors.NewValidationError(fmt.Sprintf("unknown output format %q", r.format)).WithField("output.format")
}

func (r *Renderer) renderTable(w io.Writer, g grid) error {
	re := lipgloss.NewRenderer(w)
	p := newPalette(re)

	headers := make([]string, len(g.columns))
	for i, c := range g.columns {
		headers[i] = c.short
	}

	rows := make([][]string, 0, len(g.rows)+1)
	for _, cells := range g.rows {
		rows = append(rows, r.formatRow(cells))
	}
	footerRow := -1
	if g.footer != nil {
		footerRow = len(rows)
		rows = append(rows, r.formatRow(g.footer))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.header
			case col == 0:
				return p.label
			case row == footerRow:
				return p.footer
			}
			return styleFor(p, cellAt(g, row, col), g.signed)
		})
	if r.width > 0 {
		t = t.Width(r.width)
	}

	if g.title != "" {
		title := p.title.Render(g.title)
		if r.width > 0 {
			title = truncate(title, r.width)
		}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// truncate shortens s to width visible columns, adding "..." and keeping
// ANSI sequences intact.
func truncate(s string, width int) string {
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}

// cellAt returns the raw value at a data row of g.
func cellAt(g grid, row, col int) any {
	if row < 0 || row >= len(g.rows) || col >= len(g.rows[row]) {
		return nil
	}
	return g.rows[row][col]
}

func styleFor(p palette, v any, signed bool) lipgloss.Style {
	switch x := v.(type) {
	case nil:
		return p.missing
	case float64:
		if !signed {
			break
		}
		switch {
		case x < 0:
			return p.negative
		case x > 0:
			return p.positive
		}
	}
	return p.cell
}

func (r *Renderer) formatRow(cells []any) []string {
	out := make([]string, len(cells))
	for i, v := range cells {
		out[i] = r.formatCell(v)
	}
	return out
}

func (r *Renderer) formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return missingCell
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return missingCell
		}
		return r.printer.Sprintf("%."+strconv.Itoa(r.precision)+"f", x)
	}
	return fmt.Sprint(v)
}

func renderCSV(w io.Writer, g grid) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(g.columns))
	for i, c := range g.columns {
		header[i] = c.long
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, cells := range g.rows {
		if err := cw.Write(csvRow(cells)); err != nil {
			return err
		}
	}
	if g.footer != nil {
		if err := cw.Write(csvRow(g.footer)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(cells []any) []string {
	out := make([]string, len(cells))
	for i, v := range cells {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// TerminalWidth returns the column count of w when it is a terminal, or 0.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
