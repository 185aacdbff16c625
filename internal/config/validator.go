package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/defectset/internal/errors"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	return sb.String()
}

// Err converts the result into a typed config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigErrorf("%s", strings.TrimSpace(vr.Error())).
		WithContext("errors", len(vr.Errors))
}

// Validate checks the configuration needed to build datasets
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateProjects(result)
	c.validateTrackers(result)
	c.validateStorage(result)
	c.validateOutput(result)

	if c.Workers < 1 {
		result.AddError("workers must be at least 1, got %d", c.Workers)
	}

	return result
}

func (c *Config) validateProjects(result *ValidationResult) {
	if len(c.Projects) == 0 {
		result.AddError("no projects configured")
		return
	}

	seen := make(map[string]bool)
	for i, p := range c.Projects {
		if p.Key == "" {
			result.AddError("projects[%d]: key is required", i)
			continue
		}
		k := strings.ToUpper(p.Key)
		if seen[k] {
			result.AddError("projects[%d]: duplicate key %s", i, p.Key)
		}
		seen[k] = true

		if p.RepoURL == "" && p.RepoPath == "" {
			result.AddError("project %s: repo_url or repo_path is required", p.Key)
		}

		switch p.Tracker {
		case "", "jira":
		case "github":
			if p.Owner == "" || p.Repo == "" {
				result.AddError("project %s: owner and repo are required for the github tracker", p.Key)
			}
			if p.BugLabel == "" {
				result.AddWarning("project %s: bug_label not set, every closed issue counts as a fix", p.Key)
			}
		default:
			result.AddError("project %s: unknown tracker %q", p.Key, p.Tracker)
		}
	}
}

func (c *Config) validateTrackers(result *ValidationResult) {
	usesJira, usesGitHub := false, false
	for _, p := range c.Projects {
		if p.Tracker == "github" {
			usesGitHub = true
		} else {
			usesJira = true
		}
	}

	if usesJira {
		if _, err := url.ParseRequestURI(c.Jira.BaseURL); err != nil {
			result.AddError("jira.base_url is invalid: %v", err)
		}
		if c.Jira.PageSize <= 0 {
			result.AddError("jira.page_size must be positive")
		}
	}

	if usesGitHub && c.GitHub.Token == "" {
		result.AddWarning("GITHUB_TOKEN not set, unauthenticated requests are heavily rate limited")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "", "none":
	case "sqlite":
		if c.Storage.LocalPath == "" {
			result.AddError("storage.local_path is required for sqlite")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("POSTGRES_DSN is required for postgres storage")
		}
	default:
		result.AddError("storage.type %q is not one of none, sqlite, postgres", c.Storage.Type)
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if c.Output.Directory == "" {
		result.AddError("output.directory is required")
	}
	if !strings.HasPrefix(c.Git.FileExtension, ".") && c.Git.FileExtension != "" {
		result.AddWarning("git.file_extension %q has no leading dot", c.Git.FileExtension)
	}
}
