package controllers

import (
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/agents/intent"
	"context"
)

// AgentsController exposes the command classifier without a conversation.
type AgentsController struct {
	agent *core.WalletAgent
}

func NewAgentsController(agent *core.WalletAgent) *AgentsController {
	return &AgentsController{agent: agent}
}

// Interpret returns the structured intent for one command. Model failures
// come back as the fallback intent, not as an error.
func (c *AgentsController) Interpret(ctx context.Context, userID int, command string) (intent.Intent, error) {
	return c.agent.Classify(ctx, userID, command)
}
