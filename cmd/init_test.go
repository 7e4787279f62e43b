package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahsan2/enrollctl/pkg/config"
	"github.com/yahsan2/enrollctl/pkg/prompt"
)

func TestInitCommand_NonInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	var out bytes.Buffer

	cfg, err := InitCommand{
		BaseURL:     "https://api.example.edu/v1",
		InstituteID: "inst-42",
		Out:         &out,
	}.Run(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	loaded, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.edu/v1", loaded.API.BaseURL)
	assert.Equal(t, "inst-42", loaded.Institute.ID)
	assert.Equal(t, "SKIP", loaded.Defaults.DuplicateHandling)
}

func TestInitCommand_MissingInstitute(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)

	_, err := InitCommand{
		BaseURL: "https://api.example.edu/v1",
		Out:     &bytes.Buffer{},
	}.Run(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "institute.id is required")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInitCommand_Interactive(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	answers := strings.Join([]string{
		"https://api.example.edu/v1", // base url
		"inst-7",                     // institute id
		"Springfield",                // name
		"RE_ENROLL",                  // duplicate handling
		"n",                          // notify
		"",                           // deassign mode keeps SOFT
		"150ms",                      // debounce
		"50",                         // page size
	}, "\n") + "\n"

	var out bytes.Buffer
	cfg, err := InitCommand{
		Interactive: true,
		Prompt:      prompt.NewInteractivePromptWithIO(strings.NewReader(answers), &out),
		Out:         &out,
	}.Run(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "inst-7", cfg.Institute.ID)
	assert.Equal(t, "Springfield", cfg.Institute.Name)
	assert.Equal(t, "RE_ENROLL", cfg.Defaults.DuplicateHandling)
	assert.False(t, cfg.Defaults.NotifyLearners)
	assert.Equal(t, "SOFT", cfg.Defaults.DeassignMode)
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 50, cfg.Search.PageSize)
}

func TestInitCommand_ExistingFileNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("institute:\n  id: keep\n"), 0644))

	var out bytes.Buffer
	cfg, err := InitCommand{
		BaseURL:     "https://api.example.edu/v1",
		InstituteID: "new",
		Out:         &out,
	}.Run(path)
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Initialization cancelled.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: keep")
}

func TestInitCommand_Force(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://old.example.edu\ninstitute:\n  id: keep\n"), 0644))

	cfg, err := InitCommand{
		InstituteID: "new",
		Force:       true,
		Out:         &bytes.Buffer{},
	}.Run(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "https://old.example.edu", cfg.API.BaseURL)
	assert.Equal(t, "new", cfg.Institute.ID)
}

func TestInitCommand_StartsFromParentConfig(t *testing.T) {
	root := t.TempDir()
	parent := filepath.Join(root, config.ConfigFileName)
	require.NoError(t, os.WriteFile(parent, []byte("api:\n  base_url: https://parent.example.edu/v1\ninstitute:\n  id: inst-parent\ndefaults:\n  duplicate_handling: RE_ENROLL\n"), 0644))

	dir := filepath.Join(root, "branch")
	require.NoError(t, os.Mkdir(dir, 0755))
	path := filepath.Join(dir, config.ConfigFileName)

	var out bytes.Buffer
	cfg, err := InitCommand{
		InstituteID: "inst-branch",
		Parent:      parent,
		Out:         &out,
	}.Run(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, out.String(), "Using "+parent+" as a starting point")
	assert.Equal(t, "https://parent.example.edu/v1", cfg.API.BaseURL)
	assert.Equal(t, "inst-branch", cfg.Institute.ID)
	assert.Equal(t, "RE_ENROLL", cfg.Defaults.DuplicateHandling)

	data, err := os.ReadFile(parent)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: inst-parent")
}
