package models

import "strings"

const (
	DefaultRegion            = "ap-southeast-2"
	DefaultRefreshIntervalMs = 180000

	// MinRefreshIntervalMs is the floor enforced by the scheduler regardless
	// of what the operator configured.
	MinRefreshIntervalMs = 30000
)

// Settings is the operator-supplied configuration stored in the state file.
// SecretAccessKey is encrypted at rest by the store.
type Settings struct {
	AccessKeyID       string `json:"accessKeyId"`
	SecretAccessKey   string `json:"secretAccessKey"`
	Region            string `json:"region"`
	RoleArn           string `json:"roleArn,omitempty"`
	PipelineFilter    string `json:"pipelineFilter,omitempty"`
	RefreshIntervalMs int    `json:"refreshIntervalMs"`
}

// Configured reports whether the settings carry enough to authenticate a
// remote call. Unconfigured settings make a scheduled cycle a silent skip.
func (s Settings) Configured() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != "" && s.Region != ""
}

// NormalizedFilter returns the pipeline filter trimmed and lowercased.
// Whitespace-only filters normalize to the empty string, meaning "match all".
func (s Settings) NormalizedFilter() string {
	return strings.ToLower(strings.TrimSpace(s.PipelineFilter))
}

// MatchesFilter reports whether a pipeline name passes the configured filter.
func (s Settings) MatchesFilter(pipelineName string) bool {
	filter := s.NormalizedFilter()
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(pipelineName), filter)
}

// Redacted returns a copy safe for display and API responses.
func (s Settings) Redacted() Settings {
	if s.SecretAccessKey != "" {
		s.SecretAccessKey = "********"
	}
	return s
}
