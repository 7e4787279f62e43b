package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/muesli/termenv"

	"github.com/yahsan2/enrollctl/pkg/announce"
	"github.com/yahsan2/enrollctl/pkg/api"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/invite"
)

// FormatType represents the output format type
type FormatType int

const (
	// FormatTable outputs as a formatted table
	FormatTable FormatType = iota
	// FormatJSON outputs as JSON
	FormatJSON
	// FormatCSV outputs as CSV
	FormatCSV
	// FormatQuiet outputs minimal information
	FormatQuiet
)

// ParseFormat converts a --output value into a FormatType
func ParseFormat(s string) (FormatType, error) {
	switch strings.ToLower(s) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "quiet":
		return FormatQuiet, nil
	default:
		return FormatTable, fmt.Errorf("invalid output format '%s': must be one of table, json, csv, quiet", s)
	}
}

// Formatter handles output formatting
type Formatter struct {
	format FormatType
	writer io.Writer
	isTTY  bool
	color  bool
	width  int
}

// NewFormatter creates a formatter writing to stdout, detecting the terminal
func NewFormatter(format FormatType) *Formatter {
	t := term.FromEnv()
	width, _, err := t.Size()
	if err != nil || width <= 0 {
		width = 120
	}
	return &Formatter{
		format: format,
		writer: os.Stdout,
		isTTY:  t.IsTerminalOutput(),
		color:  t.IsColorEnabled(),
		width:  width,
	}
}

// NewFormatterWithWriter creates a new formatter with custom writer. Output
// is treated as non-interactive and uncoloured.
func NewFormatterWithWriter(format FormatType, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
		width:  120,
	}
}

// WithColor forces colour on or off
func (f *Formatter) WithColor(enabled bool) *Formatter {
	f.color = enabled
	return f
}

// Format returns the configured format
func (f *Formatter) Format() FormatType {
	return f.format
}

// Writer returns the output writer
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

func (f *Formatter) table() tableprinter.TablePrinter {
	return tableprinter.New(f.writer, f.isTTY, f.width)
}

func (f *Formatter) paint(s string, c termenv.Color) string {
	if !f.color {
		return s
	}
	return termenv.String(s).Foreground(c).String()
}

func (f *Formatter) encodeJSON(v interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) writeCSV(header []string, rows [][]string) error {
	w := csv.NewWriter(f.writer)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// FormatTargets prints the package sessions available for selection
func (f *Formatter) FormatTargets(targets []assign.Target) error {
	switch f.format {
	case FormatQuiet:
		for _, t := range targets {
			if _, err := fmt.Fprintln(f.writer, t.PackageSessionID); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return f.encodeJSON(targets)
	case FormatCSV:
		rows := make([][]string, 0, len(targets))
		for _, t := range targets {
			rows = append(rows, []string{t.PackageSessionID, t.CourseName, t.LevelName, t.SessionName, t.Status})
		}
		return f.writeCSV([]string{"ID", "Course", "Level", "Session", "Status"}, rows)
	}

	if len(targets) == 0 {
		_, err := fmt.Fprintln(f.writer, "No package sessions found")
		return err
	}

	tp := f.table()
	tp.AddHeader([]string{"ID", "COURSE", "STATUS"})
	for _, t := range targets {
		tp.AddField(t.PackageSessionID)
		tp.AddField(t.Label())
		tp.AddField(t.Status)
		tp.EndRow()
	}
	return tp.Render()
}

// FormatInvitePage prints one page of invite search results
func (f *Formatter) FormatInvitePage(page *invite.Page) error {
	switch f.format {
	case FormatQuiet:
		for _, s := range page.Content {
			if _, err := fmt.Fprintln(f.writer, s.ID); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return f.encodeJSON(page)
	case FormatCSV:
		rows := make([][]string, 0, len(page.Content))
		for _, s := range page.Content {
			rows = append(rows, []string{s.ID, s.Name, s.InviteCode, s.Status})
		}
		return f.writeCSV([]string{"ID", "Name", "Code", "Status"}, rows)
	}

	if len(page.Content) == 0 {
		_, err := fmt.Fprintln(f.writer, "No invites found")
		return err
	}

	tp := f.table()
	tp.AddHeader([]string{"ID", "NAME", "CODE", "STATUS"})
	for _, s := range page.Content {
		tp.AddField(s.ID)
		tp.AddField(s.Name)
		tp.AddField(s.InviteCode)
		tp.AddField(s.Status)
		tp.EndRow()
	}
	if err := tp.Render(); err != nil {
		return err
	}

	more := ""
	if !page.Last {
		more = fmt.Sprintf(" (use --page %d for more)", page.Page+1)
	}
	_, err := fmt.Fprintf(f.writer, "\nPage %d of %d, %d invites%s\n",
		page.Page+1, maxInt(page.TotalPages, 1), page.TotalElements, more)
	return err
}

// FormatInviteDetail prints an invite and, when packageSessionID is set, the
// payment option and plan that would be used for it
func (f *Formatter) FormatInviteDetail(detail *invite.Detail, packageSessionID string) error {
	option, plan := invite.Resolve(detail, packageSessionID)

	switch f.format {
	case FormatQuiet:
		_, err := fmt.Fprintln(f.writer, detail.ID)
		return err
	case FormatJSON:
		return f.encodeJSON(struct {
			*invite.Detail
			ResolvedPaymentOption *invite.PaymentOption `json:"resolved_payment_option,omitempty"`
			ResolvedPaymentPlan   *invite.PaymentPlan   `json:"resolved_payment_plan,omitempty"`
		}{detail, option, plan})
	case FormatCSV:
		rows := [][]string{}
		for _, m := range detail.PackageSessionToPaymentOptions {
			for _, p := range m.PaymentOption.PaymentPlans {
				rows = append(rows, []string{m.PackageSessionID, m.PaymentOption.ID, m.PaymentOption.Name, p.ID, p.Name, p.Tag, p.Status, p.Price()})
			}
		}
		return f.writeCSV([]string{"PackageSession", "OptionID", "Option", "PlanID", "Plan", "Tag", "Status", "Price"}, rows)
	}

	fmt.Fprintf(f.writer, "Invite:\t%s\n", detail.Name)
	fmt.Fprintf(f.writer, "ID:\t%s\n", detail.ID)
	if detail.InviteCode != "" {
		fmt.Fprintf(f.writer, "Code:\t%s\n", detail.InviteCode)
	}
	fmt.Fprintf(f.writer, "Status:\t%s\n", detail.Status)

	if packageSessionID != "" {
		fmt.Fprintf(f.writer, "\nFor %s:\n", packageSessionID)
		switch {
		case option == nil:
			fmt.Fprintln(f.writer, "  "+f.paint("payment unresolved", termenv.ANSIYellow))
		case plan == nil:
			fmt.Fprintf(f.writer, "  %s (no active plan)\n", option.Name)
		default:
			fmt.Fprintf(f.writer, "  %s / %s %s\n", option.Name, plan.Name, plan.Price())
		}
	}

	if len(detail.PackageSessionToPaymentOptions) == 0 {
		return nil
	}

	fmt.Fprintln(f.writer)
	tp := f.table()
	tp.AddHeader([]string{"PACKAGE SESSION", "OPTION", "PLAN", "TAG", "STATUS", "PRICE"})
	for _, m := range detail.PackageSessionToPaymentOptions {
		for _, p := range m.PaymentOption.PaymentPlans {
			tp.AddField(m.PackageSessionID)
			tp.AddField(m.PaymentOption.Name)
			tp.AddField(p.Name)
			tp.AddField(p.Tag)
			tp.AddField(p.Status)
			tp.AddField(p.Price())
			tp.EndRow()
		}
	}
	return tp.Render()
}

// FormatConfigs prints the per-target configuration before the dry run
func (f *Formatter) FormatConfigs(configs []*assign.ItemConfig, labels map[string]string) error {
	switch f.format {
	case FormatQuiet:
		return nil
	case FormatJSON:
		return f.encodeJSON(configs)
	case FormatCSV:
		rows := make([][]string, 0, len(configs))
		for _, c := range configs {
			rows = append(rows, []string{c.PackageSessionID, labels[c.PackageSessionID], c.Describe(), accessDays(c)})
		}
		return f.writeCSV([]string{"PackageSession", "Course", "Invite", "AccessDays"}, rows)
	}

	tp := f.table()
	tp.AddHeader([]string{"COURSE", "INVITE", "ACCESS DAYS"})
	for _, c := range configs {
		label := labels[c.PackageSessionID]
		if label == "" {
			label = c.PackageSessionID
		}
		desc := c.Describe()
		if c.Unresolved() {
			desc = f.paint(desc, termenv.ANSIYellow)
		}
		tp.AddField(label)
		tp.AddField(desc)
		tp.AddField(accessDays(c))
		tp.EndRow()
	}
	return tp.Render()
}

func accessDays(c *assign.ItemConfig) string {
	if c.AccessDaysOverride == nil {
		return "plan default"
	}
	return strconv.Itoa(*c.AccessDaysOverride)
}

// FormatEstimates prints the recipient rows of an announcement with tag
// estimates where available
func (f *Formatter) FormatEstimates(recipients []announce.Recipient, estimates []*announce.Estimate) error {
	byRow := make(map[int]*announce.Estimate, len(estimates))
	rows := make([]estimateRow, 0, len(estimates))
	for _, e := range estimates {
		if e == nil {
			continue
		}
		byRow[e.Row] = e
		row := estimateRow{Row: e.Row, Count: e.Count}
		if e.Err != nil {
			row.Error = api.UserMessage(e.Err)
		}
		rows = append(rows, row)
	}

	if f.format == FormatQuiet {
		return nil
	}
	if f.format == FormatJSON {
		return f.encodeJSON(rows)
	}

	tp := f.table()
	tp.AddHeader([]string{"TYPE", "ID", "NAME", "ESTIMATE"})
	for i, r := range recipients {
		estimate := "-"
		if e, ok := byRow[i]; ok {
			if e.Err != nil {
				estimate = f.paint("unavailable", termenv.ANSIRed)
			} else {
				estimate = strconv.Itoa(e.Count)
			}
		}
		tp.AddField(string(r.Type))
		tp.AddField(r.ID)
		tp.AddField(r.Name)
		tp.AddField(estimate)
		tp.EndRow()
	}
	if err := tp.Render(); err != nil {
		return err
	}

	if len(rows) > 0 {
		total, complete := announce.TotalEstimate(estimates)
		suffix := ""
		if !complete {
			suffix = " (partial)"
		}
		_, err := fmt.Fprintf(f.writer, "\nEstimated tag recipients: %d%s\n", total, suffix)
		return err
	}
	return nil
}

type estimateRow struct {
	Row   int    `json:"row"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// FormatCreated prints a created announcement
func (f *Formatter) FormatCreated(created *announce.Created) error {
	switch f.format {
	case FormatQuiet:
		_, err := fmt.Fprintln(f.writer, created.ID)
		return err
	case FormatJSON:
		return f.encodeJSON(created)
	}
	_, err := fmt.Fprintf(f.writer, "Announcement created successfully!\n\nID:\t%s\nStatus:\t%s\n", created.ID, created.Status)
	return err
}

// FormatError formats an error for output
func (f *Formatter) FormatError(err error) error {
	if f.format == FormatJSON {
		errorData := map[string]string{
			"error":   err.Error(),
			"message": api.UserMessage(err),
		}

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			errorData["type"] = apiErr.Type.String()
			if apiErr.Suggestion != "" {
				errorData["suggestion"] = apiErr.Suggestion
			}
		}

		return f.encodeJSON(errorData)
	}

	_, printErr := fmt.Fprintln(f.writer, err.Error())
	return printErr
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
