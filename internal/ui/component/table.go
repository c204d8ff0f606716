package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int // 0 = fit content
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
}

// Table renders rows of text in aligned columns.
type Table struct {
	columns []TableColumn
	rows    []TableRow

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	borderStyle lipgloss.Style

	showBorder bool
}

// NewTable creates a new table component
func NewTable() *Table {
	return &Table{
		headerStyle: style.TableHeaderStyle,
		rowStyle:    style.TableRowStyle,
		borderStyle: style.TableBorderStyle,
		showBorder:  true,
	}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{
		Header: header,
		Width:  width,
		Align:  align,
	})
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle})
	return t
}

// AddStyledRow adds a row rendered with s.
func (t *Table) AddStyledRow(s lipgloss.Style, data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: s.Padding(0, 1)})
	return t
}

// SetShowBorder enables/disables table border
func (t *Table) SetShowBorder(show bool) *Table {
	t.showBorder = show
	return t
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.columnWidths()

	var content strings.Builder

	for i, col := range t.columns {
		content.WriteString(t.renderCell(col.Header, widths[i], col.Align, t.headerStyle))
		if i < len(t.columns)-1 {
			content.WriteString("│")
		}
	}
	content.WriteString("\n")
	for i := range t.columns {
		// +2 за padding ячейки
		content.WriteString(strings.Repeat("─", widths[i]+2))
		if i < len(t.columns)-1 {
			content.WriteString("┼")
		}
	}

	for _, row := range t.rows {
		content.WriteString("\n")
		for i, col := range t.columns {
			cellData := ""
			if i < len(row.Data) {
				cellData = row.Data[i]
			}
			content.WriteString(t.renderCell(cellData, widths[i], col.Align, row.Style))
			if i < len(t.columns)-1 {
				content.WriteString("│")
			}
		}
	}

	result := content.String()
	if t.showBorder {
		result = t.borderStyle.Render(result)
	}
	return result
}

// renderCell renders a single table cell
func (t *Table) renderCell(content string, width int, align lipgloss.Position, s lipgloss.Style) string {
	if lipgloss.Width(content) > width {
		runes := []rune(content)
		if width > 3 {
			content = string(runes[:width-3]) + "..."
		} else {
			content = string(runes[:width])
		}
	}
	// Width включает padding стиля
	return s.Width(width + 2).Align(align).Render(content)
}

// columnWidths uses explicit widths and sizes the rest to fit their content.
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		widths[i] = lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if i < len(row.Data) {
				if w := lipgloss.Width(row.Data[i]); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	return widths
}
