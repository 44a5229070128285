package agent

import (
	"fmt"

	"github.com/vnykmshr/fanflow/pkg/common/validation"
)

// TaskSpec describes one agent run. It is read-only to the runner.
type TaskSpec struct {
	Prompt      string   `mapstructure:"prompt" yaml:"prompt"`
	Files       []string `mapstructure:"files" yaml:"files"`
	Message     string   `mapstructure:"message" yaml:"message"`
	Remote      string   `mapstructure:"remote" yaml:"remote"`
	Branch      string   `mapstructure:"branch" yaml:"branch"`
	Title       string   `mapstructure:"title" yaml:"title"`
	Description string   `mapstructure:"description" yaml:"description"`
}

// Validate checks the fields every step relies on.
func (t TaskSpec) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"Prompt", t.Prompt},
		{"Message", t.Message},
		{"Remote", t.Remote},
		{"Branch", t.Branch},
		{"Title", t.Title},
	}
	for _, r := range required {
		if err := validation.ValidateNotEmpty("agent", r.field, r.value); err != nil {
			return err
		}
	}
	if len(t.Files) == 0 {
		return validation.ValidateNotEmpty("agent", "Files", "")
	}
	for i, f := range t.Files {
		if err := validation.ValidateNotEmpty("agent", fmt.Sprintf("Files[%d]", i), f); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTasks returns the four demo tasks.
func DefaultTasks() []TaskSpec {
	return []TaskSpec{
		{
			Prompt:      "Fix bug in login",
			Files:       []string{"login.py"},
			Message:     "Fixed login bug",
			Remote:      "origin",
			Branch:      "fix/login",
			Title:       "Fix Login",
			Description: "Fixed the login bug",
		},
		{
			Prompt:      "Add feature X",
			Files:       []string{"feature.py"},
			Message:     "Added feature X",
			Remote:      "origin",
			Branch:      "feat/x",
			Title:       "Feature X",
			Description: "Added feature X",
		},
		{
			Prompt:      "Update documentation",
			Files:       []string{"README.md"},
			Message:     "Updated README",
			Remote:      "origin",
			Branch:      "docs/update",
			Title:       "Update Docs",
			Description: "Updated valid documentation",
		},
		{
			Prompt:      "Refactor database",
			Files:       []string{"db.py"},
			Message:     "Refactored DB",
			Remote:      "origin",
			Branch:      "refactor/db",
			Title:       "Refactor DB",
			Description: "Refactored database connection",
		},
	}
}
