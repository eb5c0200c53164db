// Package stattable renders consumed items as an aligned monospace table and
// builds the aggregate lines shown above it.
package stattable

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"kcal_tracker_bot/internal/domain"
	"kcal_tracker_bot/internal/format"
)

// Column identifies a table column.
type Column int

// Available columns. ColumnName absorbs whatever width the others leave over.
const (
	ColumnID Column = iota
	ColumnName
	ColumnKcal
	ColumnTime
	ColumnUser
)

const (
	narrowBudget     = 30
	wideBudget       = 36
	wideRowThreshold = 5
	minNameWidth     = 6
	columnSeparator  = " "
	unspecifiedKcal  = "-"
)

// Options configures a render call.
type Options struct {
	Columns        []Column
	TimezoneOffset int
	TimePattern    format.Pattern
}

// ItemColumns is the layout used for a single user's statistics.
var ItemColumns = []Column{ColumnID, ColumnName, ColumnKcal, ColumnTime}

// AllUsersColumns adds the owning user to ItemColumns.
var AllUsersColumns = []Column{ColumnID, ColumnUser, ColumnName, ColumnKcal, ColumnTime}

// Render returns the header row followed by one or more rows per item.
// Names wider than the name column continue on extra rows with the other cells blank.
func Render(items []domain.ConsumedItem, opts Options) string {
	return render(items, opts, computeWidths(items, opts))
}

// Budget is the total line width the table aims for given its row count.
func Budget(rows int) int {
	if rows >= wideRowThreshold {
		return wideBudget
	}
	return narrowBudget
}

func computeWidths(items []domain.ConsumedItem, opts Options) map[Column]int {
	widths := make(map[Column]int, len(opts.Columns))
	used := 0

	for _, col := range opts.Columns {
		if col == ColumnName {
			continue
		}
		width := utf8.RuneCountInString(label(col, opts))
		for _, item := range items {
			width = max(width, utf8.RuneCountInString(cell(col, item, opts)))
		}
		widths[col] = width
		used += width
	}

	if len(opts.Columns) > 1 {
		used += len(opts.Columns) - 1
	}
	widths[ColumnName] = max(Budget(len(items))-used, minNameWidth)

	return widths
}

func render(items []domain.ConsumedItem, opts Options, widths map[Column]int) string {
	var b strings.Builder

	header := make(map[Column]string, len(opts.Columns))
	for _, col := range opts.Columns {
		header[col] = label(col, opts)
	}
	writeLine(&b, opts.Columns, widths, header)

	for _, item := range items {
		chunks, err := format.Chunk(item.Text, widths[ColumnName])
		if err != nil || len(chunks) == 0 {
			chunks = []string{item.Text}
		}

		first := make(map[Column]string, len(opts.Columns))
		for _, col := range opts.Columns {
			first[col] = cell(col, item, opts)
		}
		first[ColumnName] = chunks[0]
		writeLine(&b, opts.Columns, widths, first)

		for _, chunk := range chunks[1:] {
			writeLine(&b, opts.Columns, widths, map[Column]string{ColumnName: chunk})
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeLine(b *strings.Builder, columns []Column, widths map[Column]int, values map[Column]string) {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = pad(values[col], widths[col])
	}

	b.WriteString(strings.TrimRight(strings.Join(cells, columnSeparator), " "))
	b.WriteByte('\n')
}

func pad(value string, width int) string {
	gap := width - utf8.RuneCountInString(value)
	if gap <= 0 {
		return value
	}
	return value + strings.Repeat(" ", gap)
}

func label(col Column, opts Options) string {
	switch col {
	case ColumnID:
		return "ID"
	case ColumnName:
		return "Name"
	case ColumnKcal:
		return "Kcal"
	case ColumnTime:
		if opts.TimePattern == format.PatternLong {
			return "Date"
		}
		return "Time"
	case ColumnUser:
		return "User"
	default:
		return ""
	}
}

func cell(col Column, item domain.ConsumedItem, opts Options) string {
	switch col {
	case ColumnID:
		return strconv.FormatInt(item.ID, 10)
	case ColumnName:
		return item.Text
	case ColumnKcal:
		if item.Kcal == nil {
			return unspecifiedKcal
		}
		return format.Kcal(*item.Kcal)
	case ColumnTime:
		pattern := opts.TimePattern
		if pattern == "" {
			pattern = format.PatternShort
		}
		return format.UserLocal(item.Date, opts.TimezoneOffset, pattern)
	case ColumnUser:
		return strconv.FormatInt(item.UserID, 10)
	default:
		return ""
	}
}

// Preformatted wraps text in an HTML <pre> block, escaping its content.
func Preformatted(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}
