package dataset

import "time"

// AgentMetadata describes one agent in an instance's roster.
type AgentMetadata struct {
	AgentID        string         `json:"agent_id" yaml:"agent_id"`
	AgentType      string         `json:"agent_type" yaml:"agent_type"`
	Capabilities   []string       `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	AdditionalInfo map[string]any `json:"additional_info,omitempty" yaml:"additional_info,omitempty"`
}

// Instance is one recorded multi-agent episode. The agent roster is fixed
// at creation; write operations referencing agents outside it fail.
type Instance struct {
	InstanceID string                   `json:"instance_id"`
	Timestamp  time.Time                `json:"timestamp"`
	Agents     map[string]AgentMetadata `json:"agents"`
	Metadata   map[string]any           `json:"metadata,omitempty"`
}

// Metadata is the dataset-level aggregate, persisted as metadata.yaml at
// the dataset root and rewritten (atomically) on every instance creation.
type Metadata struct {
	Name           string         `yaml:"name"`
	Version        string         `yaml:"version"`
	Description    string         `yaml:"description"`
	CreatedAt      time.Time      `yaml:"created_at"`
	UpdatedAt      time.Time      `yaml:"updated_at"`
	TotalInstances int            `yaml:"total_instances"`
	AgentTypes     []string       `yaml:"agent_types"`
	SchemaVersion  string         `yaml:"schema_version"`
	AdditionalInfo map[string]any `yaml:"additional_info,omitempty"`
}
