package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor = lipgloss.Color("#7571f9")
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	keyStyle     = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#42c767"))
)

func (g *globals) printJSON(v any) error {
	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows below headers, or v as JSON with --json.
func (g *globals) printTable(v any, headers []string, rows [][]string) error {
	if g.json {
		return g.printJSON(v)
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(g.out, t.Render())
	return err
}

// print renders a single record as aligned key/value lines.
func (g *globals) print(v any, fields [][2]string) error {
	if g.json {
		return g.printJSON(v)
	}
	width := 0
	for _, f := range fields {
		width = max(width, len(f[0]))
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-*s", width, f[0])))
		b.WriteString("  ")
		b.WriteString(f[1])
		b.WriteString("\n")
	}
	_, err := fmt.Fprint(g.out, b.String())
	return err
}

func (g *globals) done(message string) error {
	if g.json {
		return g.printJSON(map[string]any{"success": true, "message": message})
	}
	_, err := fmt.Fprintln(g.out, successStyle.Render(message))
	return err
}

func fmtID(v uint64) string {
	return fmt.Sprintf("%d", v)
}
