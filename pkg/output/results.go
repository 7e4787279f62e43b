package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/yahsan2/enrollctl/pkg/assign"
)

// ChipColor is the colour of a summary chip
type ChipColor int

const (
	ChipGreen ChipColor = iota
	ChipYellow
	ChipRed
)

func (c ChipColor) ansi() termenv.Color {
	switch c {
	case ChipGreen:
		return termenv.ANSIGreen
	case ChipYellow:
		return termenv.ANSIYellow
	default:
		return termenv.ANSIRed
	}
}

// Chip is one coloured count shown above the results table
type Chip struct {
	Label string
	Count int
	Color ChipColor
}

func (c Chip) String() string {
	return fmt.Sprintf("%d %s", c.Count, c.Label)
}

// SummaryChips returns one chip per non-zero count: successful (green),
// skipped (yellow), failed (red)
func SummaryChips(s assign.Summary) []Chip {
	var chips []Chip
	if s.Successful > 0 {
		chips = append(chips, Chip{Label: "successful", Count: s.Successful, Color: ChipGreen})
	}
	if s.Skipped > 0 {
		chips = append(chips, Chip{Label: "skipped", Count: s.Skipped, Color: ChipYellow})
	}
	if s.Failed > 0 {
		chips = append(chips, Chip{Label: "failed", Count: s.Failed, Color: ChipRed})
	}
	return chips
}

func statusColor(status assign.ResultStatus) ChipColor {
	switch status {
	case assign.StatusSuccess:
		return ChipGreen
	case assign.StatusSkipped:
		return ChipYellow
	default:
		return ChipRed
	}
}

// FormatBulkResponse renders a dry-run preview or a final result. labels
// maps package session ids to course labels; missing ids print as-is.
func (f *Formatter) FormatBulkResponse(resp *assign.BulkResponse, labels map[string]string) error {
	switch f.format {
	case FormatQuiet:
		_, err := fmt.Fprintln(f.writer, resp.Outcome().String())
		return err
	case FormatJSON:
		return f.encodeJSON(resp)
	case FormatCSV:
		return f.formatBulkResponseCSV(resp, labels)
	default:
		return f.formatBulkResponseTable(resp, labels)
	}
}

func (f *Formatter) formatBulkResponseTable(resp *assign.BulkResponse, labels map[string]string) error {
	title := "Results"
	if resp.DryRun {
		title = "Preview (dry run, nothing was changed)"
	}
	fmt.Fprintf(f.writer, "%s\n\n", title)

	chips := SummaryChips(resp.Summary)
	if len(chips) == 0 {
		fmt.Fprintf(f.writer, "Nothing to do (%d requested)\n", resp.Summary.TotalRequested)
	} else {
		parts := make([]string, 0, len(chips))
		for _, c := range chips {
			parts = append(parts, f.paint(c.String(), c.Color.ansi()))
		}
		fmt.Fprintf(f.writer, "%s  (of %d requested)\n", strings.Join(parts, "  "), resp.Summary.TotalRequested)
	}

	if len(resp.Results) == 0 {
		return nil
	}

	fmt.Fprintln(f.writer)
	tp := f.table()
	tp.AddHeader([]string{"USER", "COURSE", "STATUS", "ACTION", "MESSAGE"})
	for _, r := range resp.Results {
		tp.AddField(r.UserID)
		tp.AddField(label(labels, r.PackageSessionID))
		tp.AddField(f.paint(string(r.Status), statusColor(r.Status).ansi()))
		tp.AddField(r.ActionTaken)
		tp.AddField(resultMessage(r))
		tp.EndRow()
	}
	return tp.Render()
}

func (f *Formatter) formatBulkResponseCSV(resp *assign.BulkResponse, labels map[string]string) error {
	rows := make([][]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		rows = append(rows, []string{
			r.UserID,
			r.PackageSessionID,
			label(labels, r.PackageSessionID),
			string(r.Status),
			r.ActionTaken,
			r.Message,
			r.Warning,
			r.EnrollmentID,
			strconv.FormatBool(resp.DryRun),
		})
	}
	return f.writeCSV([]string{"UserID", "PackageSessionID", "Course", "Status", "Action", "Message", "Warning", "EnrollmentID", "DryRun"}, rows)
}

func label(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return id
}

func resultMessage(r assign.ItemResult) string {
	switch {
	case r.Message != "" && r.Warning != "":
		return r.Message + " (warning: " + r.Warning + ")"
	case r.Warning != "":
		return "warning: " + r.Warning
	default:
		return r.Message
	}
}
