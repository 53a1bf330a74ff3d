// Package archivist reconciles the knowledge base with a finished narrator
// turn. It runs in the background with a larger step budget than the turn.
package archivist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chronicle/internal/agent"
	"chronicle/internal/store"
	"chronicle/internal/tasks"
	"chronicle/internal/tools"
)

type Deps struct {
	Decider agent.Decider
	Tools   tools.Deps
	Tasks   *tasks.Runner
	// Budget is the step budget of one run.
	Budget int
	// FocusMessages is how many trailing messages the run should process;
	// earlier messages are context only.
	FocusMessages int
	Logger        *slog.Logger
}

type Archivist struct {
	runner *agent.Runner
	tools  tools.Deps
	tasks  *tasks.Runner
	budget int
	focus  int
	logger *slog.Logger
}

func New(d Deps) *Archivist {
	focus := d.FocusMessages
	if focus <= 0 {
		focus = 2
	}
	logger := d.Logger.With("component", "archivist")
	return &Archivist{
		runner: agent.NewRunner(d.Decider, logger),
		tools:  d.Tools,
		tasks:  d.Tasks,
		budget: d.Budget,
		focus:  focus,
		logger: logger,
	}
}

// Run processes the transcript through the read and write tools. It reads
// whatever state exists when it runs.
func (a *Archivist) Run(ctx context.Context, world *store.World, player *store.Entity, messages []store.Message) (*agent.Outcome, error) {
	catalogue, err := tools.New(a.tools, tools.Session{World: world, Player: player})
	if err != nil {
		return nil, fmt.Errorf("building archivist tools: %w", err)
	}
	specs, err := catalogue.Specs(tools.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("describing archivist tools: %w", err)
	}

	out, err := a.runner.Run(ctx, agent.Task{
		System:   systemPrompt(world, player, a.focus),
		Messages: []store.Message{{Role: "user", Content: transcriptPrompt(messages, a.focus)}},
		Tools:    specs,
		Executor: catalogue.Executor(tools.ReadWrite),
		MaxSteps: a.budget,
	})
	if err != nil {
		return out, fmt.Errorf("archiving turn: %w", err)
	}
	a.logger.Info("archive run completed", "world", world.ID, "player", player.ID, "steps", out.Steps, "exhausted", out.Exhausted)
	return out, nil
}

// Schedule runs the archivist in the background. The run outlives ctx's
// cancellation; failures are logged and not retried.
func (a *Archivist) Schedule(ctx context.Context, world *store.World, player *store.Entity, messages []store.Message) {
	transcript := append([]store.Message(nil), messages...)
	a.tasks.Go(ctx, fmt.Sprintf("archive player-%d", player.ID), func(ctx context.Context) error {
		_, err := a.Run(ctx, world, player, transcript)
		return err
	})
}

func systemPrompt(world *store.World, player *store.Entity, focus int) string {
	return fmt.Sprintf(`You are a knowledge base archivist for a choose-your-own-adventure game. Extract and organize noteworthy information from chat messages into the game's knowledge base.

## Context
<WORLD_INFO>
Name: %s
Description: %s
</WORLD_INFO>
<PLAYER_INFO>
Name: %s
Description: %s
</PLAYER_INFO>

## Core Responsibilities
1. Extract: identify new locations, characters, items and events from the messages.
2. Deduplicate: always search existing knowledge before adding anything new.
3. Update: modify existing entries when information changes. Keep the story out of entity descriptions and record events instead. Descriptions hold the current state plus some background such as the origin of the entity.
4. Merge: combine duplicate entries when found. If a character is the same person as a player, use merge_character_into_player. If two characters are the same in story terms (for example "The Blacksmith" and "Old Brannoc the Blacksmith"), use merge_characters.

## Critical Rules
- No duplicates: search thoroughly before creating new entries.
- Never create characters that are actually players.
- Update unnamed characters when they receive names (for example "The elder" becomes "Elder Marcus").
- Process only the latest %d messages; the others are context.
- Every event must reference at least one location, character, player or item.

Remember: a richer knowledge base creates better stories!`,
		world.Name, world.Description, player.Name, player.Description, focus)
}

func transcriptPrompt(messages []store.Message, focus int) string {
	var b strings.Builder
	b.WriteString("Process these chat messages for knowledge base updates:\n\n<GAME_MESSAGES>\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "<%s>%s</%s>\n", m.Role, m.Content, m.Role)
	}
	b.WriteString("</GAME_MESSAGES>\n\n")
	fmt.Fprintf(&b, "Focus on the latest %d messages. Extract any new information, update existing entries and make sure no duplicates are created.", focus)
	return b.String()
}
