package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	xterm "golang.org/x/term"

	"github.com/yahsan2/enrollctl/pkg/api"
	"github.com/yahsan2/enrollctl/pkg/args"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/config"
	"github.com/yahsan2/enrollctl/pkg/filter"
	"github.com/yahsan2/enrollctl/pkg/invite"
	"github.com/yahsan2/enrollctl/pkg/output"
	"github.com/yahsan2/enrollctl/pkg/prompt"
	"github.com/yahsan2/enrollctl/pkg/validate"
	"github.com/yahsan2/enrollctl/pkg/wizard"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign courses to learners in bulk",
	Long: `Assign one or more courses (package sessions) to one or more learners.

The command walks through four steps:
  1. select courses and learners
  2. configure each course: its default invite (auto) or an explicit invite,
     and an optional access-days override
  3. preview: the request is sent with dry_run=true and the server reports
     what would happen, without changing anything
  4. confirm: the identical request is sent for real and the results shown

Without --yes you are asked before step 4. With --dry-run the command stops
after the preview.`,
	Example: `  # Interactive
  enrollctl assign

  # Two courses for two learners, explicit invite for one of them
  enrollctl assign -u u-1,u-2 -t ps-1,ps-2 --invite ps-2=inv-9 --yes

  # Preview only, re-enrolling existing learners with a 90 day override
  enrollctl assign -u u-1 -t ps-1 --duplicate-handling RE_ENROLL --access-days ps-1=90 --dry-run`,
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		return runWizard(cmd, wizard.ModeAssign, &assignFlags)
	},
}

var deassignCmd = &cobra.Command{
	Use:     "deassign",
	Aliases: []string{"unassign"},
	Short:   "Remove courses from learners in bulk",
	Long: `Remove one or more courses (package sessions) from one or more learners.

SOFT mode revokes access and keeps the enrollment record; HARD mode removes
it. A dry-run preview is always shown before anything changes.`,
	Example: `  enrollctl deassign -u u-1,u-2 -t ps-1 --mode SOFT --yes
  enrollctl deassign -u u-1 -t ps-1,ps-2 --mode HARD --dry-run -o json`,
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		return runWizard(cmd, wizard.ModeDeassign, &deassignFlags)
	},
}

type wizardFlags struct {
	users       []string
	targets     []string
	invites     []string
	accessDays  []string
	duplicate   string
	mode        string
	notify      bool
	dryRun      bool
	yes         bool
	interactive bool
}

var (
	assignFlags   wizardFlags
	deassignFlags wizardFlags
)

func init() {
	for _, c := range []struct {
		cmd   *cobra.Command
		flags *wizardFlags
	}{{assignCmd, &assignFlags}, {deassignCmd, &deassignFlags}} {
		f := c.cmd.Flags()
		f.StringSliceVarP(&c.flags.users, "user", "u", []string{}, "Learner user IDs (comma separated or repeated)")
		f.StringSliceVarP(&c.flags.targets, "target", "t", []string{}, "Package session IDs (comma separated or repeated)")
		f.BoolVar(&c.flags.notify, "notify", true, "Notify learners (default: defaults.notify_learners)")
		f.BoolVar(&c.flags.dryRun, "dry-run", false, "Stop after the preview")
		f.BoolVarP(&c.flags.yes, "yes", "y", false, "Apply without asking for confirmation")
		f.BoolVarP(&c.flags.interactive, "interactive", "i", true, "Prompt for missing input when attached to a terminal")
		args.AddTargetFlags(c.cmd, nil)
	}

	assignCmd.Flags().StringArrayVar(&assignFlags.invites, "invite", []string{}, "Explicit invite for a target (target=inviteID, repeatable)")
	assignCmd.Flags().StringArrayVar(&assignFlags.accessDays, "access-days", []string{}, "Access days override for a target (target=N, repeatable)")
	assignCmd.Flags().StringVar(&assignFlags.duplicate, "duplicate-handling", "", "Existing enrollments: SKIP, RE_ENROLL or ERROR (default: defaults.duplicate_handling)")
	deassignCmd.Flags().StringVar(&deassignFlags.mode, "mode", "", "SOFT or HARD (default: defaults.deassign_mode)")

	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(deassignCmd)
}

func runWizard(cmd *cobra.Command, mode wizard.Mode, flags *wizardFlags) error {
	filters, err := args.ParseTargetFlags(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg, client, formatter, err := setup()
	if err != nil {
		return err
	}

	in, err := buildWizardInput(cfg, flags, filters, cmd.Flags().Changed("notify"))
	if err != nil {
		return err
	}

	interactive := flags.interactive && xterm.IsTerminal(int(os.Stdin.Fd()))
	c := &WizardCommand{
		Mode:        mode,
		Client:      client,
		Config:      cfg,
		Formatter:   formatter,
		Prompt:      prompt.NewInteractivePrompt(),
		Notifier:    wizard.NewWriterNotifier(os.Stderr),
		Interactive: interactive,
	}

	_, err = c.Run(cmd.Context(), in)
	return err
}

// buildWizardInput merges flags with configuration defaults
func buildWizardInput(cfg *config.Config, flags *wizardFlags, filters *filter.TargetFilters, notifyChanged bool) (WizardInput, error) {
	in := WizardInput{
		UserIDs:           cleanList(flags.users),
		Targets:           cleanList(flags.targets),
		Filters:           filters,
		DuplicateHandling: assign.DuplicateHandling(strings.ToUpper(flags.duplicate)),
		DeassignMode:      assign.DeassignMode(strings.ToUpper(flags.mode)),
		Notify:            cfg.Defaults.NotifyLearners,
		DryRun:            flags.dryRun,
		Yes:               flags.yes,
	}
	if notifyChanged {
		in.Notify = flags.notify
	}
	if in.DuplicateHandling == "" {
		in.DuplicateHandling = assign.DuplicateHandling(cfg.Defaults.DuplicateHandling)
	}
	if in.DeassignMode == "" {
		in.DeassignMode = assign.DeassignMode(cfg.Defaults.DeassignMode)
	}

	var err error
	if in.Invites, err = args.ParsePairs(flags.invites); err != nil {
		return in, fmt.Errorf("--invite: %w", err)
	}
	if in.AccessDays, err = args.ParseAccessDays(flags.accessDays); err != nil {
		return in, fmt.Errorf("--access-days: %w", err)
	}
	return in, nil
}

// enrollmentAPI is what the wizard command needs from the admin API
type enrollmentAPI interface {
	wizard.Submitter
	targetLister
	inviteAPI
}

// WizardInput is everything supplied up front for one wizard run
type WizardInput struct {
	UserIDs           []string
	Targets           []string
	Filters           *filter.TargetFilters
	Invites           map[string]string
	AccessDays        map[string]int
	DuplicateHandling assign.DuplicateHandling
	DeassignMode      assign.DeassignMode
	Notify            bool
	DryRun            bool
	Yes               bool
}

// WizardCommand drives a wizard.Wizard from flags and prompts
type WizardCommand struct {
	Mode        wizard.Mode
	Client      enrollmentAPI
	Config      *config.Config
	Formatter   *output.Formatter
	Prompt      *prompt.InteractivePrompt
	Notifier    wizard.Notifier
	Interactive bool
}

// errConfirmRequired is returned after a preview when confirmation cannot be asked for
var errConfirmRequired = errors.New("preview complete; re-run with --yes to apply the changes")

// reportedError marks an error the user has already been notified about
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Run executes one wizard session and returns the wizard in its final state
func (c *WizardCommand) Run(ctx context.Context, in WizardInput) (*wizard.Wizard, error) {
	targets, err := c.Client.ListTargets(ctx)
	if err != nil {
		return nil, err
	}

	w := wizard.New(ctx, c.Client, c.Notifier, targets, wizard.Options{
		Mode:        c.Mode,
		InstituteID: c.Config.Institute.ID,
		UserIDs:     in.UserIDs,
		Assign: assign.AssignOptions{
			DuplicateHandling: in.DuplicateHandling,
			NotifyLearners:    in.Notify,
		},
		Deassign: assign.DeassignOptions{
			Mode:           in.DeassignMode,
			NotifyLearners: in.Notify,
		},
	})

	// SELECT_COURSES
	if err := c.selectTargets(w, targets, in); err != nil {
		return w, err
	}
	if err := w.Next(ctx); err != nil {
		return w, &reportedError{err}
	}

	// CONFIGURE and PREVIEW; going back from the preview keeps every choice
	for revisit := false; ; revisit = true {
		if c.Mode == wizard.ModeAssign {
			if err := c.configure(ctx, w, in, revisit); err != nil {
				return w, err
			}
			if c.Formatter.Format() == output.FormatTable {
				if err := c.Formatter.FormatConfigs(w.Configs(), w.Labels()); err != nil {
					return w, err
				}
				fmt.Fprintln(c.Formatter.Writer())
			}
		}
		if err := c.advance(ctx, w.Next); err != nil {
			return w, err
		}

		if err := c.Formatter.FormatBulkResponse(w.Preview(), w.Labels()); err != nil {
			return w, err
		}
		if in.DryRun {
			return w, nil
		}

		action := prompt.PreviewApply
		if !in.Yes {
			if !c.Interactive {
				return w, errConfirmRequired
			}
			fmt.Fprintln(c.Formatter.Writer())
			action = c.Prompt.ReviewPreview(c.Mode == wizard.ModeAssign)
		}

		switch action {
		case prompt.PreviewCancel:
			c.Notifier.Info("Cancelled; nothing was changed.")
			return w, nil
		case prompt.PreviewBack:
			if err := w.Back(); err != nil {
				return w, err
			}
			continue
		}
		break
	}

	// RESULTS
	if err := c.advance(ctx, w.Confirm); err != nil {
		return w, err
	}
	if err := c.Formatter.FormatBulkResponse(w.Result(), w.Labels()); err != nil {
		return w, err
	}
	return w, w.Done()
}

// advance runs a preview or confirm round trip. The wizard has already
// notified the user of a failure and stays on its step, so in interactive
// mode the same round trip can be retried.
func (c *WizardCommand) advance(ctx context.Context, step func(context.Context) error) error {
	for {
		err := step(ctx)
		if err == nil {
			return nil
		}

		var verrs validate.Errors
		if !c.Interactive || errors.As(err, &verrs) || !c.Prompt.Confirm("Retry?", true) {
			return &reportedError{err}
		}
	}
}

func (c *WizardCommand) selectTargets(w *wizard.Wizard, targets []assign.Target, in WizardInput) error {
	ids := in.Targets
	if len(ids) == 0 && c.Interactive {
		var err error
		ids, err = c.Prompt.SelectTargets(in.Filters.Apply(targets))
		if err != nil {
			return err
		}
	}

	for _, id := range ids {
		if w.IsSelected(id) {
			continue
		}
		if err := w.Toggle(id); err != nil {
			return err
		}
	}

	if len(w.UserIDs()) == 0 && c.Interactive {
		raw := c.Prompt.GetStringInput("Learner user IDs (comma separated)", "")
		if err := w.SetUserIDs(cleanList(strings.Split(raw, ","))); err != nil {
			return err
		}
	}
	return nil
}

// configure applies --invite and --access-days on the first pass. In
// interactive mode it then offers per-target customization, always when
// coming back from the preview.
func (c *WizardCommand) configure(ctx context.Context, w *wizard.Wizard, in WizardInput, revisit bool) error {
	configurator := assign.NewConfigurator(c.Client)

	if !revisit {
		for _, target := range sortedKeys(in.Invites) {
			cfg, err := w.Config(target)
			if err != nil {
				return fmt.Errorf("--invite %s: %w", target, err)
			}
			if err := configurator.SelectInviteByID(ctx, cfg, in.Invites[target]); err != nil {
				return err
			}
			if cfg.Unresolved() {
				c.Notifier.Info(fmt.Sprintf("%s: no active payment option for %s; the server will decide", target, cfg.SelectedInvite.Label()))
			}
		}

		for _, target := range sortedKeys(in.AccessDays) {
			cfg, err := w.Config(target)
			if err != nil {
				return fmt.Errorf("--access-days %s: %w", target, err)
			}
			days := in.AccessDays[target]
			if err := cfg.SetAccessDays(&days); err != nil {
				return err
			}
		}
	}

	if !c.Interactive {
		return nil
	}
	if !revisit && (len(in.Invites) > 0 || len(in.AccessDays) > 0) {
		return nil
	}

	labels := w.Labels()
	if err := c.Formatter.FormatConfigs(w.Configs(), labels); err != nil {
		return err
	}
	if !c.Prompt.Confirm("\nCustomize invites or access days?", revisit) {
		return nil
	}

	for _, cfg := range w.Configs() {
		c.configureItem(ctx, configurator, cfg, labels[cfg.PackageSessionID])
	}
	return nil
}

// configureItem lets the user pick an invite and access days for one target.
// Remote failures are reported and leave the config as it was.
func (c *WizardCommand) configureItem(ctx context.Context, configurator *assign.Configurator, cfg *assign.ItemConfig, label string) {
	searcher := invite.NewSearcher(ctx, c.Client, cfg.PackageSessionID, c.Config.Search.PageSize, c.Config.Search.Debounce)
	defer searcher.Close()

	query, pageNo := "", 0
	page, err := searcher.Search(ctx, query, pageNo)

pick:
	for err == nil {
		choice := c.Prompt.SelectInvite(label, page)
		switch choice.Action {
		case prompt.ActionKeep:
			break pick
		case prompt.ActionAuto:
			cfg.SetAuto()
			break pick
		case prompt.ActionSelect:
			if selErr := configurator.SelectInvite(ctx, cfg, *choice.Invite); selErr != nil {
				c.Notifier.Error(api.UserMessage(selErr))
				continue
			}
			if cfg.Unresolved() {
				c.Notifier.Info("No active payment option for this course; the server will decide")
			}
			break pick
		case prompt.ActionNextPage:
			if page.Last {
				continue
			}
			pageNo++
			page, err = searcher.Search(ctx, query, pageNo)
		case prompt.ActionPrevPage:
			if pageNo == 0 {
				continue
			}
			pageNo--
			page, err = searcher.Search(ctx, query, pageNo)
		case prompt.ActionSearch:
			query, pageNo = choice.Query, 0
			searcher.Query(query)
			page, err = awaitSearch(ctx, searcher)
		}
	}
	if err != nil {
		c.Notifier.Error(api.UserMessage(err))
	}

	days, err := c.Prompt.GetIntInput("Access days override (empty for plan default)", cfg.AccessDaysOverride)
	if err != nil {
		c.Notifier.Error(err.Error())
		return
	}
	if err := cfg.SetAccessDays(days); err != nil {
		c.Notifier.Error(err.Error())
	}
}

func awaitSearch(ctx context.Context, searcher *invite.Searcher) (*invite.Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-searcher.Results():
		if !ok {
			return nil, errors.New("invite search closed")
		}
		return res.Page, res.Err
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
