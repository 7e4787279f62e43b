package announce

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDraft reads an announcement draft from a YAML file
func LoadDraft(path string) (*Announcement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var a Announcement
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse draft file: %w", err)
	}

	if a.Content.Type == "" {
		a.Content.Type = "text"
	}
	if a.Scheduling.Type == "" {
		a.Scheduling.Type = ScheduleImmediate
	}
	return &a, nil
}
