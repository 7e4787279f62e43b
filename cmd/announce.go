package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	xterm "golang.org/x/term"

	"github.com/yahsan2/enrollctl/pkg/announce"
	"github.com/yahsan2/enrollctl/pkg/output"
	"github.com/yahsan2/enrollctl/pkg/prompt"
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Create an announcement or email campaign",
	Long: `Create an announcement for roles, learners, courses or tags and deliver it
through in-platform modes and/or outbound mediums.

The announcement is validated locally first. Recipient counts are estimated
for TAG recipients before you confirm.

Schedule dates accept ISO dates (2025-01-31) and expressions relative to
today: @today, @today+1d, @today-2w, @today+3m.`,
	Example: `  # Immediate email to all students
  enrollctl announce --title "Exam timetable" --body "See the dashboard" \
    --role STUDENT --medium EMAIL --yes

  # Weekly reminder to a tag, starting tomorrow
  enrollctl announce --title "Weekly quiz" --body "New quiz is live" \
    --tag tag-42:Toppers --mode DASHBOARD_PIN --medium PUSH_NOTIFICATION \
    --schedule RECURRING --cron "0 9 * * 1" --start @today+1d --end @today+3m

  # From a YAML draft, estimates only
  enrollctl announce --from-file draft.yml --dry-run`,
	RunE: runAnnounce,
}

type announceFlags struct {
	fromFile        string
	title           string
	body            string
	html            bool
	createdBy       string
	roles           []string
	users           []string
	packageSessions []string
	tags            []string
	modes           []string
	mediums         []string
	schedule        string
	cron            string
	timezone        string
	start           string
	end             string
	dryRun          bool
	yes             bool
}

var annFlags announceFlags

func init() {
	f := announceCmd.Flags()
	f.StringVarP(&annFlags.fromFile, "from-file", "F", "", "Read the announcement draft from a YAML file")
	f.StringVar(&annFlags.title, "title", "", "Title")
	f.StringVarP(&annFlags.body, "body", "b", "", "Body text")
	f.BoolVar(&annFlags.html, "html", false, "Body is HTML")
	f.StringVar(&annFlags.createdBy, "created-by", "", "Author user ID")
	f.StringSliceVar(&annFlags.roles, "role", []string{}, "Recipient role (repeatable)")
	f.StringSliceVar(&annFlags.users, "user", []string{}, "Recipient user ID (repeatable)")
	f.StringSliceVar(&annFlags.packageSessions, "package-session", []string{}, "Recipient package session ID (repeatable)")
	f.StringSliceVar(&annFlags.tags, "tag", []string{}, "Recipient tag as id or id:name (repeatable)")
	f.StringSliceVar(&annFlags.modes, "mode", []string{}, "In-platform mode: SYSTEM_ALERT, DASHBOARD_PIN, DM, STREAM, RESOURCES, COMMUNITY, TASKS")
	f.StringSliceVar(&annFlags.mediums, "medium", []string{}, "Outbound medium: EMAIL, WHATSAPP, PUSH_NOTIFICATION")
	f.StringVar(&annFlags.schedule, "schedule", "", "IMMEDIATE, ONE_TIME or RECURRING (default IMMEDIATE)")
	f.StringVar(&annFlags.cron, "cron", "", "Cron expression for RECURRING schedules (5 fields)")
	f.StringVar(&annFlags.timezone, "timezone", "", "IANA timezone for the schedule")
	f.StringVar(&annFlags.start, "start", "", "Start date (ISO or @today expression)")
	f.StringVar(&annFlags.end, "end", "", "End date (ISO or @today expression)")
	f.BoolVar(&annFlags.dryRun, "dry-run", false, "Validate and estimate only")
	f.BoolVarP(&annFlags.yes, "yes", "y", false, "Create without asking for confirmation")

	rootCmd.AddCommand(announceCmd)
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	_, client, formatter, err := setup()
	if err != nil {
		return err
	}

	a, err := buildAnnouncement(&annFlags)
	if err != nil {
		return err
	}

	c := &AnnounceCommand{
		Client:      client,
		Formatter:   formatter,
		Prompt:      prompt.NewInteractivePrompt(),
		Interactive: xterm.IsTerminal(int(os.Stdin.Fd())),
		Now:         time.Now,
	}
	_, err = c.Run(cmd.Context(), a, annFlags.dryRun, annFlags.yes)
	return err
}

// buildAnnouncement reads the draft file, if any, and overlays flags on it
func buildAnnouncement(flags *announceFlags) (*announce.Announcement, error) {
	a := &announce.Announcement{
		Content:    announce.Content{Type: "text"},
		Scheduling: announce.Scheduling{Type: announce.ScheduleImmediate},
	}
	if flags.fromFile != "" {
		draft, err := announce.LoadDraft(flags.fromFile)
		if err != nil {
			return nil, err
		}
		a = draft
	}

	if flags.title != "" {
		a.Title = flags.title
	}
	if flags.body != "" {
		a.Content.Body = flags.body
	}
	if flags.html {
		a.Content.Type = "html"
	}
	if flags.createdBy != "" {
		a.CreatedBy = flags.createdBy
	}

	for _, r := range flags.roles {
		a.Recipients = append(a.Recipients, announce.Recipient{Type: announce.RecipientRole, ID: strings.ToUpper(r)})
	}
	for _, u := range flags.users {
		a.Recipients = append(a.Recipients, announce.Recipient{Type: announce.RecipientUser, ID: u})
	}
	for _, ps := range flags.packageSessions {
		a.Recipients = append(a.Recipients, announce.Recipient{Type: announce.RecipientPackageSession, ID: ps})
	}
	for _, tag := range flags.tags {
		id, name, _ := strings.Cut(tag, ":")
		a.Recipients = append(a.Recipients, announce.Recipient{Type: announce.RecipientTag, ID: id, Name: name})
	}

	for _, m := range flags.modes {
		a.Modes = append(a.Modes, announce.Mode{Type: announce.ModeType(strings.ToUpper(m))})
	}
	for _, m := range flags.mediums {
		a.Mediums = append(a.Mediums, announce.Medium{Type: announce.MediumType(strings.ToUpper(m))})
	}

	if flags.schedule != "" {
		a.Scheduling.Type = announce.ScheduleType(strings.ToUpper(flags.schedule))
	}
	if flags.cron != "" {
		a.Scheduling.Cron = flags.cron
	}
	if flags.timezone != "" {
		a.Scheduling.Timezone = flags.timezone
	}
	if flags.start != "" {
		a.Scheduling.StartDate = flags.start
	}
	if flags.end != "" {
		a.Scheduling.EndDate = flags.end
	}

	return a, nil
}

// announcementAPI is the announcement part of the admin API
type announcementAPI interface {
	announce.TagCounter
	InstituteID() string
	CreateAnnouncement(ctx context.Context, a *announce.Announcement) (*announce.Created, error)
}

// AnnounceCommand validates, estimates and creates an announcement
type AnnounceCommand struct {
	Client      announcementAPI
	Formatter   *output.Formatter
	Prompt      *prompt.InteractivePrompt
	Interactive bool
	Now         func() time.Time
}

var errAnnounceConfirmRequired = errors.New("announcement is valid; re-run with --yes to create it")

// Run creates the announcement. It returns nil, nil when stopped before
// creation (dry run or declined).
func (c *AnnounceCommand) Run(ctx context.Context, a *announce.Announcement, dryRun, yes bool) (*announce.Created, error) {
	if a.InstituteID == "" {
		a.InstituteID = c.Client.InstituteID()
	}
	if err := a.ResolveDates(c.Now()); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	estimates := announce.EstimateTagRecipients(ctx, c.Client, a.Recipients)
	if err := c.Formatter.FormatEstimates(a.Recipients, estimates); err != nil {
		return nil, err
	}
	if dryRun {
		return nil, nil
	}

	if !yes {
		if !c.Interactive {
			return nil, errAnnounceConfirmRequired
		}
		if !c.Prompt.Confirm(fmt.Sprintf("Create announcement %q?", a.Title), false) {
			fmt.Fprintln(c.Formatter.Writer(), "Cancelled.")
			return nil, nil
		}
	}

	created, err := c.Client.CreateAnnouncement(ctx, a)
	if err != nil {
		return nil, err
	}
	return created, c.Formatter.FormatCreated(created)
}
