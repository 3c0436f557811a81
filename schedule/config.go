package schedule

import (
	apperrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// JobConfig is the declarative shape of one scheduled job.
type JobConfig struct {
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
}

type jobsFile struct {
	Jobs []JobConfig `yaml:"jobs" json:"jobs"`
}

// ParseJobs decodes a YAML (or JSON) job list.
func ParseJobs(data []byte) ([]JobConfig, error) {
	var cfg jobsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryBadInput, "parse schedule config").
			WithTextCode("SCHEDULE_CONFIG_PARSE")
	}
	for i, job := range cfg.Jobs {
		if job.Name == "" || job.Expression == "" {
			return nil, apperrors.New("job entries need a name and an expression", apperrors.CategoryValidation).
				WithTextCode("SCHEDULE_CONFIG_INVALID").
				WithMetadata(map[string]any{"index": i})
		}
	}
	return cfg.Jobs, nil
}

// Apply schedules every configured job, resolving implementations by name
// from registry. Unknown names fail before anything is scheduled.
func (s *Scheduler) Apply(cfgs []JobConfig, registry map[string]Job) ([]Handle, error) {
	for _, cfg := range cfgs {
		if _, ok := registry[cfg.Name]; !ok {
			return nil, apperrors.New("no job registered for configured name", apperrors.CategoryBadInput).
				WithTextCode("SCHEDULE_UNKNOWN_JOB").
				WithMetadata(map[string]any{"name": cfg.Name})
		}
	}

	handles := make([]Handle, 0, len(cfgs))
	for _, cfg := range cfgs {
		h, err := s.Every(cfg.Expression, registry[cfg.Name])
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
