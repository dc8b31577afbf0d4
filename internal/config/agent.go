package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "PROCTOR_AGENT_NAME"
	EnvAgentProviderName = "PROCTOR_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "PROCTOR_AGENT_BASE_URL"
	EnvAgentModelName    = "PROCTOR_AGENT_MODEL_NAME"
	EnvAgentToken        = "PROCTOR_AGENT_TOKEN"
	EnvAgentDeployment   = "PROCTOR_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "PROCTOR_AGENT_API_VERSION"
	EnvAgentAuthType     = "PROCTOR_AGENT_AUTH_TYPE"
)

// provider options settable from the environment, keyed by env var.
var agentOptionEnv = map[string]string{
	EnvAgentToken:      "token",
	EnvAgentDeployment: "deployment",
	EnvAgentAPIVersion: "api_version",
	EnvAgentAuthType:   "auth_type",
}

// FinalizeAgent fills the text screening model config from go-agents
// defaults, applies PROCTOR_AGENT_* overrides, and validates the result.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	base := gaconfig.DefaultAgentConfig()
	base.Merge(c)
	*c = base

	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = map[string]any{}
	}

	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}
	for env, key := range agentOptionEnv {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}

	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.Provider.Name == "":
		return errors.New("provider name required")
	}
	return nil
}
