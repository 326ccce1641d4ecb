package core

import (
	"aiwallet/aiwallet/agents/configs"
	"aiwallet/aiwallet/agents/intent"
	"aiwallet/aiwallet/services/llm"
	"aiwallet/aiwallet/utils/logging"
	"context"

	"go.uber.org/zap"
)

// ClassifyContext is what the classifier prompt knows about the conversation.
type ClassifyContext struct {
	HasWallet bool
	Address   string
	Balance   string
	Locked    bool
	Draft     intent.TransferDraft
	LastError string
	Command   string
}

// Classifier turns one user command into an Intent through the LLM.
type Classifier struct {
	LLM    llm.Provider
	Config *configs.AgentConfig
}

func NewClassifier(provider llm.Provider, cfg *configs.AgentConfig) *Classifier {
	return &Classifier{LLM: provider, Config: cfg}
}

// Classify never fails: any provider or decode problem yields intent.Fallback().
func (c *Classifier) Classify(ctx context.Context, command string, cctx ClassifyContext) intent.Intent {
	defer logging.LogDuration(ctx, "classify")()

	cctx.Command = command
	user, err := c.Config.RenderUser(cctx)
	if err != nil {
		logging.ErrorLogger.Error("classifier prompt render failed", zap.Error(err))
		return intent.Fallback()
	}

	raw, err := c.LLM.Complete(ctx, llm.CompletionRequest{
		System:      c.Config.ClassifierSystem,
		User:        user,
		Temperature: c.Config.Temperature,
		MaxTokens:   c.Config.MaxTokens,
	})
	if err != nil {
		logging.AppLogger.Warn("classifier call failed",
			zap.String("provider", c.LLM.Name()),
			zap.Error(err))
		return intent.Fallback()
	}

	it, err := intent.Decode(raw)
	if err != nil {
		logging.AppLogger.Warn("classifier reply rejected",
			zap.String("provider", c.LLM.Name()),
			zap.String("raw", raw),
			zap.Error(err))
		return intent.Fallback()
	}
	logging.AppLogger.Info("command classified",
		zap.String("action", string(it.Action)),
		zap.String("step", string(it.Step)))
	return it
}
