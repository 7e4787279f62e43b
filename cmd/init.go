package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	xterm "golang.org/x/term"

	"github.com/yahsan2/enrollctl/pkg/config"
	"github.com/yahsan2/enrollctl/pkg/prompt"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize enrollctl configuration",
	Long: `Initialize a new enrollctl configuration file (` + config.ConfigFileName + `) in the current directory.

This command will:
- Create a ` + config.ConfigFileName + ` configuration file
- Record the API base URL and the institute you act for
- Set default bulk enrollment options

The API token is never written to the file. Set ENROLLCTL_TOKEN in your
environment or in a .env file next to the configuration.`,
	Example: `  # Interactive initialization
  enrollctl init

  # Non-interactive
  enrollctl init --base-url https://api.example.edu/admin-core-service/v1 --institute-id inst-42`,
	RunE: runInit,
}

var (
	initBaseURL     string
	initInstitute   string
	initName        string
	initInteractive bool
	initForce       bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "API base URL")
	initCmd.Flags().StringVar(&initInstitute, "institute-id", "", "Institute ID")
	initCmd.Flags().StringVar(&initName, "institute-name", "", "Institute display name")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", true, "Interactive mode")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	interactive := initInteractive && xterm.IsTerminal(int(os.Stdin.Fd()))
	p := prompt.NewInteractivePrompt()

	cfg, err := InitCommand{
		BaseURL:       initBaseURL,
		InstituteID:   initInstitute,
		InstituteName: initName,
		Interactive:   interactive,
		Force:         initForce,
		Parent:        config.FindConfigPath(),
		Prompt:        p,
		Out:           cmd.OutOrStdout(),
	}.Run(config.ConfigFileName)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration saved to %s\n", config.ConfigFileName)
	fmt.Fprintln(cmd.OutOrStdout(), "Set ENROLLCTL_TOKEN (or add it to .env) before running other commands.")
	return nil
}

// InitCommand writes a configuration file from flags and prompts
type InitCommand struct {
	BaseURL       string
	InstituteID   string
	InstituteName string
	Interactive   bool
	Force         bool
	// Parent is a configuration found in a parent directory; a new file
	// starts from its values
	Parent        string
	Prompt        *prompt.InteractivePrompt
	Out           io.Writer
}

// Run creates the configuration at path. It returns nil, nil when the user
// declines to overwrite an existing file.
func (c InitCommand) Run(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if !c.Force {
			if !c.Interactive || !c.Prompt.ConfirmOverwrite(path) {
				fmt.Fprintln(c.Out, "Initialization cancelled.")
				return nil, nil
			}
		}
		if existing, err := config.LoadFile(path); err == nil {
			cfg = existing
		}
	} else if c.Parent != "" {
		if inherited, err := config.LoadFile(c.Parent); err == nil {
			fmt.Fprintf(c.Out, "Using %s as a starting point; the new file will take precedence in this directory.\n", c.Parent)
			cfg = inherited
		}
	}

	if c.BaseURL != "" {
		cfg.API.BaseURL = c.BaseURL
	}
	if c.InstituteID != "" {
		cfg.Institute.ID = c.InstituteID
	}
	if c.InstituteName != "" {
		cfg.Institute.Name = c.InstituteName
	}

	if c.Interactive {
		cfg.API.BaseURL = c.Prompt.GetStringInput("API base URL", cfg.API.BaseURL)
		cfg.Institute.ID = c.Prompt.GetStringInput("Institute ID", cfg.Institute.ID)
		cfg.Institute.Name = c.Prompt.GetStringInput("Institute name", cfg.Institute.Name)
		cfg.Defaults.DuplicateHandling = c.Prompt.GetStringInput("Duplicate handling (SKIP, RE_ENROLL, ERROR)", cfg.Defaults.DuplicateHandling)
		cfg.Defaults.NotifyLearners = c.Prompt.Confirm("Notify learners by default?", cfg.Defaults.NotifyLearners)
		cfg.Defaults.DeassignMode = c.Prompt.GetStringInput("De-assign mode (SOFT, HARD)", cfg.Defaults.DeassignMode)

		debounce := c.Prompt.GetStringInput("Invite search debounce", cfg.Search.Debounce.String())
		if d, err := time.ParseDuration(debounce); err == nil {
			cfg.Search.Debounce = d
		}
		pageSize := c.Prompt.GetStringInput("Invite search page size", strconv.Itoa(cfg.Search.PageSize))
		if n, err := strconv.Atoi(pageSize); err == nil {
			cfg.Search.PageSize = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}
