package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wharfctl/wharf/internal/state"
)

// DefaultRuntime is used when neither the project nor a function
// declares one.
const DefaultRuntime = "python3.12"

// Config is the project configuration at .wharf/config.json: the
// application's functions and event sources plus per-stage overrides.
type Config struct {
	AppName    string                  `json:"app_name"`
	Runtime    string                  `json:"runtime,omitempty"`
	Functions  []*FunctionConfig       `json:"functions"`
	Stages     map[string]*StageConfig `json:"stages,omitempty"`
	StateStore *state.StoreConfig      `json:"state_store,omitempty"`

	// project directory the config was loaded from, for resolving
	// relative paths
	Dir string `json:"-"`
}

// StageConfig overrides deployment settings for one named stage.
type StageConfig struct {
	Region          string `json:"region,omitempty"`
	Profile         string `json:"profile,omitempty"`
	APIGatewayStage string `json:"api_gateway_stage,omitempty"`

	// IAMRoleARN points at a pre-created role; when set, no role is
	// managed for this stage.
	IAMRoleARN string `json:"iam_role_arn,omitempty"`

	// IAMPolicyFile is a policy document in the project directory used
	// instead of the auto-generated one.
	IAMPolicyFile string `json:"iam_policy_file,omitempty"`

	LambdaMemorySize     *int32            `json:"lambda_memory_size,omitempty"`
	LambdaTimeout        *int32            `json:"lambda_timeout,omitempty"`
	EnvironmentVariables map[string]string `json:"environment_variables,omitempty"`
	Tags                 map[string]string `json:"tags,omitempty"`
}

// FunctionConfig declares one function and its event sources.
type FunctionConfig struct {
	Name    string `json:"name"`
	Handler string `json:"handler"`
	Runtime string `json:"runtime,omitempty"`

	MemorySize           *int32            `json:"memory_size,omitempty"`
	Timeout              *int32            `json:"timeout,omitempty"`
	EnvironmentVariables map[string]string `json:"environment_variables,omitempty"`
	SecurityGroupIDs     []string          `json:"security_group_ids,omitempty"`
	SubnetIDs            []string          `json:"subnet_ids,omitempty"`
	Layers               []string          `json:"layers,omitempty"`
	ReservedConcurrency  *int32            `json:"reserved_concurrency,omitempty"`

	Routes          []RouteConfig    `json:"routes,omitempty"`
	ScheduledEvents []ScheduleConfig `json:"scheduled_events,omitempty"`
	S3Events        []S3EventConfig  `json:"s3_events,omitempty"`
	SNSEvents       []SNSEventConfig `json:"sns_events,omitempty"`
	SQSEvents       []SQSEventConfig `json:"sqs_events,omitempty"`
}

type RouteConfig struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

type ScheduleConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

type S3EventConfig struct {
	Name   string   `json:"name"`
	Bucket string   `json:"bucket"`
	Events []string `json:"events"`
	Prefix string   `json:"prefix,omitempty"`
	Suffix string   `json:"suffix,omitempty"`
}

type SNSEventConfig struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

type SQSEventConfig struct {
	Name                  string `json:"name"`
	Queue                 string `json:"queue"`
	BatchSize             int32  `json:"batch_size,omitempty"`
	MaximumBatchingWindow int32  `json:"maximum_batching_window,omitempty"`
}

// Load reads and validates the project configuration.
func Load(projectDir string) (*Config, error) {
	path := filepath.Join(projectDir, ".wharf", "config.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config %s: %w", path, err)
	}
	cfg.Dir = projectDir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the invariants the graph builder relies on.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name is required")
	}
	if len(c.Functions) == 0 {
		return fmt.Errorf("at least one function is required")
	}
	seen := make(map[string]bool)
	for _, fn := range c.Functions {
		if fn.Name == "" {
			return fmt.Errorf("every function needs a name")
		}
		if seen[fn.Name] {
			return fmt.Errorf("duplicate function name %q", fn.Name)
		}
		seen[fn.Name] = true
		if fn.Handler == "" {
			return fmt.Errorf("function %q needs a handler", fn.Name)
		}
	}
	return nil
}

// Stage returns the configuration for a named stage, defaulting to an
// empty override set for stages the config does not mention.
func (c *Config) Stage(name string) *StageConfig {
	if stage, ok := c.Stages[name]; ok {
		return stage
	}
	return &StageConfig{}
}

// FunctionRuntime resolves the runtime for a function: its own
// declaration, then the project default, then the built-in default.
func (c *Config) FunctionRuntime(fn *FunctionConfig) string {
	if fn.Runtime != "" {
		return fn.Runtime
	}
	if c.Runtime != "" {
		return c.Runtime
	}
	return DefaultRuntime
}
