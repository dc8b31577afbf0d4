package textanalysis

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Completer sends a single prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AgentCompleter is a Completer backed by a go-agents chat agent.
type AgentCompleter struct {
	cfg gaconfig.AgentConfig
}

// NewAgentCompleter returns a Completer for a finalized agent configuration.
func NewAgentCompleter(cfg gaconfig.AgentConfig) *AgentCompleter {
	return &AgentCompleter{cfg: cfg}
}

// Complete creates an agent per call and runs one chat turn.
func (c *AgentCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	return resp.Content(), nil
}
