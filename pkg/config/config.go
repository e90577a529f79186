// Package config loads the agent configuration from a YAML file with
// CONVERSE_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/converse/pkg/actions"
	"github.com/dukex/converse/pkg/identity"
	"github.com/dukex/converse/pkg/llm"
	"github.com/dukex/converse/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "CONVERSE"

	defaultName = "converse"
)

// Config is the agent-level configuration. Process-level settings such as
// the listen port and database URL are CLI flags.
type Config struct {
	Agent                 models.AgentCard  `mapstructure:"agent"`
	LLM                   llm.Config        `mapstructure:"llm"`
	Actions               []actions.Binding `mapstructure:"actions"`
	MCP                   MCPConfig         `mapstructure:"mcp"`
	Catalog               CatalogConfig     `mapstructure:"catalog"`
	Identity              IdentityConfig    `mapstructure:"identity"`
	Messages              MessagesConfig    `mapstructure:"messages"`
	Stream                StreamConfig      `mapstructure:"stream"`
	Prompts               PromptsConfig     `mapstructure:"prompts"`
	ClassificationTimeout time.Duration     `mapstructure:"classification_timeout"`
}

// MCPConfig points at the MCP server exposing system actions and user info.
// An empty Tools list routes every action name to the server.
type MCPConfig struct {
	URL     string        `mapstructure:"url"`
	Tools   []string      `mapstructure:"tools"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	Size          int    `mapstructure:"size"           validate:"gte=0"`
	PurgeSchedule string `mapstructure:"purge_schedule"`
}

type IdentityConfig struct {
	Issuer     string         `mapstructure:"issuer"`
	RolesClaim string         `mapstructure:"roles_claim"`
	Users      []StaticUser   `mapstructure:"users"      validate:"dive"`
	Fallback   *identity.User `mapstructure:"fallback"`
}

// StaticUser maps a bearer token to a user for the static identity provider.
type StaticUser struct {
	Token string   `mapstructure:"token" validate:"required"`
	ID    string   `mapstructure:"id"    validate:"required"`
	Roles []string `mapstructure:"roles"`
}

type MessagesConfig struct {
	Fallback string `mapstructure:"fallback"`
	Exit     string `mapstructure:"exit"`
	Failure  string `mapstructure:"failure"`
	Complete string `mapstructure:"complete"`
}

type StreamConfig struct {
	Buffer  int           `mapstructure:"buffer"  validate:"gte=0"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PromptsConfig overrides the built-in prompt defaults. Prompts stored in
// persistence still take precedence.
type PromptsConfig struct {
	Classifier string `mapstructure:"classifier"`
}

// Load reads path, or converse.yaml from the working directory and ./config
// when path is empty. A missing file is only an error when path was given.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config

	err = v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	err = validator.New(validator.WithRequiredStructEnabled()).Struct(config)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Keys need a default to be overridable from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.name", "Converse")
	v.SetDefault("agent.description", "")
	v.SetDefault("agent.url", "")
	v.SetDefault("agent.version", "0.1.0")

	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_version", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("mcp.url", "")
	v.SetDefault("mcp.timeout", "60s")

	v.SetDefault("catalog.size", 32)
	v.SetDefault("catalog.purge_schedule", "@every 10m")

	v.SetDefault("identity.issuer", "")
	v.SetDefault("identity.roles_claim", "roles")

	v.SetDefault("messages.fallback", "")
	v.SetDefault("messages.exit", "")
	v.SetDefault("messages.failure", "")
	v.SetDefault("messages.complete", "")

	v.SetDefault("stream.buffer", 16)
	v.SetDefault("stream.timeout", "5s")

	v.SetDefault("prompts.classifier", "")

	v.SetDefault("classification_timeout", "30s")
}

// StaticUsers returns the static identity users keyed by token.
func (c *Config) StaticUsers() (map[string]identity.User, *identity.User) {
	users := make(map[string]identity.User, len(c.Identity.Users))
	for _, user := range c.Identity.Users {
		users[user.Token] = identity.User{ID: user.ID, Roles: user.Roles}
	}

	return users, c.Identity.Fallback
}
