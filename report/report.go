// Package report renders classification results for a terminal or a pipe.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/JRCondeNast/dataset/classifier"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// Output formats.
const (
	Text  = "text"
	Table = "table"
	JSON  = "json"
)

// Formats lists the accepted format names.
var Formats = []string{Text, Table, JSON}

// Writer prints results in one format.
type Writer struct {
	w      io.Writer
	format string
}

// NewWriter fails for unknown formats.
func NewWriter(w io.Writer, format string) (*Writer, error) {
	switch format {
	case Text, Table, JSON:
		return &Writer{w: w, format: format}, nil
	}
	return nil, errors.Errorf("unknown output format %q, expected one of %v", format, Formats)
}

// Write renders one result.
func (w *Writer) Write(result *classifier.Result) error {
	switch w.format {
	case Table:
		return w.writeTable(result)
	case JSON:
		return json.NewEncoder(w.w).Encode(result)
	}
	return w.writeText(result)
}

// writeText prints `index: mid - display_name (score = value)` lines.
func (w *Writer) writeText(result *classifier.Result) error {
	for _, p := range result.Labels {
		if _, err := fmt.Fprintln(w.w, p.String()); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeTable(result *classifier.Result) error {
	table := tablewriter.NewWriter(w.w)
	table.SetHeader([]string{"Index", "MID", "Name", "Score"})
	if result.Filename != "" {
		table.SetCaption(true, result.Filename)
	}
	table.SetBorder(false)
	for _, p := range result.Labels {
		table.Append([]string{
			strconv.Itoa(p.Index),
			p.MID,
			p.DisplayName,
			fmt.Sprintf("%.2f", p.Score),
		})
	}
	table.Render()
	return nil
}
