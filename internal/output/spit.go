// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/staranto/tasksync/internal/config"
	"github.com/staranto/tasksync/internal/tasks"
)

// Formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists every valid --output value.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// EmptyMessage is printed by text output for an empty collection.
const EmptyMessage = "No tasks left!"

// PendingSuffix marks a placeholder in text output.
const PendingSuffix = " (being created)"

// Options select how a collection is emitted.
type Options struct {
	Format string
	Titles bool
	Color  bool
	Filter string
	Sort   string
	// Updated, when set, adds an "updated ... ago" footer to text output.
	Updated time.Time
}

// Spit filters, sorts and renders data to w. A nil w means stdout.
func Spit(w io.Writer, data tasks.Collection, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	rows := FilterItems(data.Clone(), opts.Filter)
	SortItems(rows, opts.Sort)
	if rows == nil {
		rows = tasks.Collection{}
	}

	switch opts.Format {
	case FormatJSON:
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = w.Write(append(out, '\n'))
		return err
	case FormatYAML:
		out, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	case FormatText, "":
		TableWriter(rows, opts, w)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

// TableWriter renders the collection in a tabular form honoring color and
// titles options.
func TableWriter(data tasks.Collection, opts Options, w io.Writer) {
	if len(data) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		writeFooter(w, opts)
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
		pendingStyle = cellStyle.Italic(true)
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
		pendingStyle = pendingStyle.Faint(true)
	}

	pad, _ := config.GetInt("padding", 0)
	log.Debugf("padding: %v", pad)

	rows := make([][]string, 0, len(data))
	for _, it := range data {
		rows = append(rows, Row(it))
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row >= 0 && row < len(data) && data[row].IsPlaceholder():
				style = pendingStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers("id", "label").BorderHeader(false)
	}
	fmt.Fprintln(w, t)
	writeFooter(w, opts)
}

// Row renders one item as table cells. Placeholders have no id yet.
func Row(it tasks.Item) []string {
	if it.IsPlaceholder() {
		return []string{"-", it.Label + PendingSuffix}
	}
	return []string{strconv.Itoa(it.ID), it.Label}
}

func writeFooter(w io.Writer, opts Options) {
	if opts.Updated.IsZero() {
		return
	}
	fmt.Fprintf(w, "\nupdated %s\n", humanize.Time(opts.Updated))
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}
