package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/invite"
)

// InteractivePrompt handles interactive user input
type InteractivePrompt struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewInteractivePrompt creates a prompt on stdin / stderr
func NewInteractivePrompt() *InteractivePrompt {
	return NewInteractivePromptWithIO(os.Stdin, os.Stderr)
}

// NewInteractivePromptWithIO creates a prompt on the given streams
func NewInteractivePromptWithIO(in io.Reader, out io.Writer) *InteractivePrompt {
	return &InteractivePrompt{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (p *InteractivePrompt) readLine() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Confirm asks a yes/no question; an empty answer takes defaultYes
func (p *InteractivePrompt) Confirm(question string, defaultYes bool) bool {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s (%s): ", question, hint)

	input, ok := p.readLine()
	if !ok {
		return false
	}

	switch strings.ToLower(input) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing file
func (p *InteractivePrompt) ConfirmOverwrite(path string) bool {
	fmt.Fprintf(p.out, "Configuration file %s already exists.\n", path)
	return p.Confirm("Do you want to overwrite it?", false)
}

// GetStringInput prompts for a string input with an optional default value
func (p *InteractivePrompt) GetStringInput(prompt string, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s (default: %s): ", prompt, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", prompt)
	}

	input, ok := p.readLine()
	if !ok || input == "" {
		return defaultValue
	}
	return input
}

// GetIntInput prompts for a positive integer; empty keeps the default,
// which may be nil
func (p *InteractivePrompt) GetIntInput(prompt string, defaultValue *int) (*int, error) {
	def := ""
	if defaultValue != nil {
		def = strconv.Itoa(*defaultValue)
	}
	input := p.GetStringInput(prompt, def)
	if input == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("'%s' is not a positive number", input)
	}
	return &n, nil
}

// SelectTargets lists targets and reads a selection such as "1,3-5" or
// "all". It returns the selected package session ids in list order.
func (p *InteractivePrompt) SelectTargets(targets []assign.Target) ([]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	fmt.Fprintln(p.out, "\nAvailable courses:")
	fmt.Fprintln(p.out, strings.Repeat("-", 70))
	for i, t := range targets {
		fmt.Fprintf(p.out, "%3d. %-50s %s\n", i+1, truncateString(t.Label(), 50), t.Status)
	}
	fmt.Fprintln(p.out, strings.Repeat("-", 70))
	fmt.Fprintf(p.out, "Select courses (e.g. 1,3-5 or 'all'): ")

	input, ok := p.readLine()
	if !ok {
		return nil, nil
	}

	indexes, err := ParseSelection(input, len(targets))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(indexes))
	for _, i := range indexes {
		ids = append(ids, targets[i].PackageSessionID)
	}
	return ids, nil
}

// SelectInvite shows one page of invites. It returns the chosen invite, or
// nil to keep auto mode; "n"/"p" request the next/previous page and "/text"
// a new search.
func (p *InteractivePrompt) SelectInvite(label string, page *invite.Page) InviteChoice {
	fmt.Fprintf(p.out, "\nInvites for %s:\n", label)
	fmt.Fprintf(p.out, "  0. auto (default invite)\n")
	for i, s := range page.Content {
		fmt.Fprintf(p.out, "%3d. %s\n", i+1, s.Label())
	}
	if len(page.Content) == 0 {
		fmt.Fprintln(p.out, "     no invites match")
	}
	fmt.Fprintf(p.out, "Select invite (0-%d, n/p page, /text search, enter keeps current): ", len(page.Content))

	input, ok := p.readLine()
	if !ok || input == "" {
		return InviteChoice{Action: ActionKeep}
	}

	switch {
	case strings.EqualFold(input, "n"):
		return InviteChoice{Action: ActionNextPage}
	case strings.EqualFold(input, "p"):
		return InviteChoice{Action: ActionPrevPage}
	case strings.HasPrefix(input, "/"):
		return InviteChoice{Action: ActionSearch, Query: strings.TrimSpace(input[1:])}
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 0 || n > len(page.Content) {
		fmt.Fprintln(p.out, "Invalid selection, keeping the current choice.")
		return InviteChoice{Action: ActionKeep}
	}
	if n == 0 {
		return InviteChoice{Action: ActionAuto}
	}
	selected := page.Content[n-1]
	return InviteChoice{Action: ActionSelect, Invite: &selected}
}

// PreviewAction is the answer to ReviewPreview
type PreviewAction int

const (
	PreviewCancel PreviewAction = iota
	PreviewApply
	PreviewBack
)

// ReviewPreview asks what to do with a dry-run preview. With allowBack the
// user can return to the configuration; any other answer cancels.
func (p *InteractivePrompt) ReviewPreview(allowBack bool) PreviewAction {
	if allowBack {
		fmt.Fprintf(p.out, "Apply these changes? (y = apply, b = back to configure, N = cancel): ")
	} else {
		fmt.Fprintf(p.out, "Apply these changes? (y/N): ")
	}

	input, ok := p.readLine()
	if !ok {
		return PreviewCancel
	}

	switch strings.ToLower(input) {
	case "y", "yes":
		return PreviewApply
	case "b", "back":
		if allowBack {
			return PreviewBack
		}
	}
	return PreviewCancel
}

// InviteAction is what the user asked for on the invite prompt
type InviteAction int

const (
	ActionKeep InviteAction = iota
	ActionAuto
	ActionSelect
	ActionNextPage
	ActionPrevPage
	ActionSearch
)

// InviteChoice is the answer to SelectInvite
type InviteChoice struct {
	Action InviteAction
	Invite *invite.Summary
	Query  string
}

// ParseSelection parses "1,3-5" or "all" into sorted zero-based indexes
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return nil, nil
	}

	if input == "all" || input == "*" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
		}

		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid selection '%s'", part)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid selection '%s'", part)
		}
		if start < 1 || end > n || start > end {
			return nil, fmt.Errorf("selection '%s' out of range 1-%d", part, n)
		}

		for i := start; i <= end; i++ {
			seen[i-1] = true
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

// truncateString truncates a string to the specified length with ellipsis
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
