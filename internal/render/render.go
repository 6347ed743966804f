// Package render formats report results as Markdown or JSON.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/samreport-cli/internal/utils"
)

// Format selects the output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts markdown|md|json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (use markdown or json)", s)
}

// Document is any report that can render itself as Markdown.
type Document interface {
	Markdown() string
}

// Bytes encodes doc in the given format.
func Bytes(f Format, doc Document) ([]byte, error) {
	if f == FormatJSON {
		return utils.PrettyJSON(doc)
	}
	return []byte(doc.Markdown()), nil
}

// Write encodes doc to w.
func Write(w io.Writer, f Format, doc Document) error {
	b, err := Bytes(f, doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(blank)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// table writes a Markdown table; cells are escaped.
func table(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = safeVal(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func notes(b *strings.Builder, notices []string) {
	if len(notices) == 0 {
		return
	}
	b.WriteString("\n[NOTES]\n")
	for _, n := range notices {
		b.WriteString("- " + n + "\n")
	}
}
