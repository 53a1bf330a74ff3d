// Package narrator runs player sessions: the opening introduction and each
// narrated turn, with the chat transcript persisted per player.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chronicle/internal/agent"
	"chronicle/internal/archivist"
	"chronicle/internal/config"
	"chronicle/internal/knowledge"
	"chronicle/internal/store"
	"chronicle/internal/tools"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Deps struct {
	Store   store.Store
	Decider agent.Decider
	Tools   tools.Deps
	// Archivist is optional; without it turns are not reconciled.
	Archivist *archivist.Archivist
	Budgets   config.BudgetConfig
	Logger    *slog.Logger
}

type Narrator struct {
	store     store.Store
	runner    *agent.Runner
	tools     tools.Deps
	archivist *archivist.Archivist
	budgets   config.BudgetConfig
	logger    *slog.Logger
}

func New(d Deps) *Narrator {
	logger := d.Logger.With("component", "narrator")
	return &Narrator{
		store:     d.Store,
		runner:    agent.NewRunner(d.Decider, logger),
		tools:     d.Tools,
		archivist: d.Archivist,
		budgets:   d.Budgets,
		logger:    logger,
	}
}

// History returns the player's stored transcript, empty when none exists.
func (n *Narrator) History(ctx context.Context, player *store.Entity) ([]store.Message, error) {
	h, err := n.store.GetChatHistory(ctx, player.ID)
	if errors.Is(err, store.ErrNotFound) {
		return []store.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return h.Messages, nil
}

// Introduce opens a player's session with read-only research and a welcome
// message. A player that already has a transcript keeps it unchanged.
func (n *Narrator) Introduce(ctx context.Context, world *store.World, player *store.Entity) ([]store.Message, error) {
	history, err := n.History(ctx, player)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		return history, nil
	}

	text := ""
	out, err := n.run(ctx, world, player, tools.ReadOnly, n.budgets.Introduction, introductionPrompt(),
		[]store.Message{{Role: RoleUser, Content: introductionRequest(world, player)}})
	if err != nil {
		n.logger.Error("generating introduction", "player", player.ID, "error", err)
	} else {
		text = strings.TrimSpace(out.Text)
	}
	if text == "" {
		n.logger.Warn("using fallback introduction", "player", player.ID)
		text = fallbackIntroduction(world, player)
	}

	messages := []store.Message{{Role: RoleAssistant, Content: text}}
	if err := n.store.SaveChatHistory(ctx, player.ID, messages); err != nil {
		return nil, fmt.Errorf("saving introduction: %w", err)
	}
	return messages, nil
}

// Turn narrates the response to one player message. The exchange is appended
// to the stored transcript and the archivist is scheduled with the full
// transcript once the narration is saved.
func (n *Narrator) Turn(ctx context.Context, world *store.World, player *store.Entity, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", &knowledge.ValidationError{Field: "message", Err: errors.New("must not be empty")}
	}
	history, err := n.History(ctx, player)
	if err != nil {
		return "", err
	}
	transcript := append(history, store.Message{Role: RoleUser, Content: message})

	out, err := n.run(ctx, world, player, tools.ReadWrite, n.budgets.Turn, turnPrompt(world, player), transcript)
	if err != nil {
		return "", fmt.Errorf("narrating turn: %w", err)
	}
	narration := strings.TrimSpace(out.Text)
	if narration == "" {
		n.logger.Warn("turn produced no narration", "player", player.ID, "steps", out.Steps, "exhausted", out.Exhausted)
		narration = "The world holds its breath for a moment. What do you do?"
	}

	transcript = append(transcript, store.Message{Role: RoleAssistant, Content: narration})
	if err := n.store.SaveChatHistory(ctx, player.ID, transcript); err != nil {
		return "", fmt.Errorf("saving chat history: %w", err)
	}
	if n.archivist != nil {
		n.archivist.Schedule(ctx, world, player, transcript)
	}
	return narration, nil
}

func (n *Narrator) run(ctx context.Context, world *store.World, player *store.Entity, set tools.Set, budget int, system string, messages []store.Message) (*agent.Outcome, error) {
	catalogue, err := tools.New(n.tools, tools.Session{World: world, Player: player})
	if err != nil {
		return nil, fmt.Errorf("building tools: %w", err)
	}
	specs, err := catalogue.Specs(set)
	if err != nil {
		return nil, fmt.Errorf("describing tools: %w", err)
	}
	return n.runner.Run(ctx, agent.Task{
		System:   system,
		Messages: messages,
		Tools:    specs,
		Executor: catalogue.Executor(set),
		MaxSteps: budget,
	})
}
