package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/varekai/opsmind/internal/core/domain"
)

// TaskFile is the on-disk task list format:
//
//	tasks:
//	  - name: db-health        # optional, derived from intent when absent
//	    intent: verify the database is healthy
//	    description: ...       # optional
type TaskFile struct {
	Tasks []domain.TaskSpec `yaml:"tasks"`
}

// LoadTaskFile reads and validates a task list. Every task needs an intent;
// names are left empty here, the runner derives slugs for unnamed tasks.
func LoadTaskFile(path string) ([]domain.TaskSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var file TaskFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("task file %s declares no tasks", path)
	}
	for i, task := range file.Tasks {
		if strings.TrimSpace(task.Intent) == "" {
			return nil, fmt.Errorf("task %d in %s has no intent", i+1, path)
		}
	}
	return file.Tasks, nil
}
