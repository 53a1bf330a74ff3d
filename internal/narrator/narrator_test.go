package narrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/agent/agenttest"
	"chronicle/internal/archivist"
	"chronicle/internal/config"
	"chronicle/internal/knowledge/knowledgetest"
	"chronicle/internal/llm/llmtest"
	"chronicle/internal/logging"
	"chronicle/internal/merge"
	"chronicle/internal/narrator"
	"chronicle/internal/store"
	"chronicle/internal/tools"
)

type fixture struct {
	env       *knowledgetest.Env
	world     *store.World
	player    *store.Entity
	script    *agenttest.Script
	archivist *agenttest.Script
	narrator  *narrator.Narrator
}

func newFixture(t *testing.T, script *agenttest.Script) *fixture {
	t.Helper()
	env := knowledgetest.New(t)
	w := env.World(t, "Eldoria")
	p := env.Player(t, w, "user-1", "Ayla", "An elven ranger")

	logger := logging.Discard()
	engine := merge.New(merge.Deps{Knowledge: env.Service, Summarizer: &llmtest.Summarizer{}, Cache: env.Cache, Logger: logger})
	toolDeps := tools.Deps{Knowledge: env.Service, Merge: engine, Logger: logger}
	archivistScript := agenttest.NewScript()
	budgets := config.Default().Budgets

	n := narrator.New(narrator.Deps{
		Store:   env.Store,
		Decider: script,
		Tools:   toolDeps,
		Archivist: archivist.New(archivist.Deps{
			Decider: archivistScript,
			Tools:   toolDeps,
			Tasks:   env.Tasks,
			Budget:  budgets.Archive,
			Logger:  logger,
		}),
		Budgets: budgets,
		Logger:  logger,
	})
	return &fixture{env: env, world: w, player: p, script: script, archivist: archivistScript, narrator: n}
}

func TestHistoryEmptyForNewPlayer(t *testing.T) {
	f := newFixture(t, agenttest.NewScript())
	history, err := f.narrator.History(context.Background(), f.player)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestIntroduceResearchesReadOnly(t *testing.T) {
	script := agenttest.NewScript(
		agenttest.Calls(agenttest.Call("1", "get_world_locations", tools.SearchInput{Queries: []string{"forest", "village", "road"}})),
	)
	script.Final = "You wake at the edge of a misty forest."
	f := newFixture(t, script)
	ctx := context.Background()

	messages, err := f.narrator.Introduce(ctx, f.world, f.player)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, narrator.RoleAssistant, messages[0].Role)
	assert.Equal(t, "You wake at the edge of a misty forest.", messages[0].Content)

	requests := script.Requests()
	require.Len(t, requests, 2)
	offered := agenttest.ToolNames(requests[0])
	assert.Contains(t, offered, "get_current_player")
	assert.NotContains(t, offered, "add_location")
	assert.Contains(t, requests[0].Messages[0].Content, "<PLAYER>Ayla</PLAYER>")

	again, err := f.narrator.Introduce(ctx, f.world, f.player)
	require.NoError(t, err)
	assert.Equal(t, messages, again)
	assert.Len(t, script.Requests(), 2, "an existing transcript is not regenerated")
}

func TestIntroduceKeepsLastSavedOpening(t *testing.T) {
	script := agenttest.NewScript()
	f := newFixture(t, script)
	ctx := context.Background()

	// Two racing first introductions each save their own opening.
	first := []store.Message{{Role: narrator.RoleAssistant, Content: "You wake in a ditch."}}
	second := []store.Message{{Role: narrator.RoleAssistant, Content: "You wake at the harbour."}}
	require.NoError(t, f.env.Store.SaveChatHistory(ctx, f.player.ID, first))
	require.NoError(t, f.env.Store.SaveChatHistory(ctx, f.player.ID, second))

	messages, err := f.narrator.Introduce(ctx, f.world, f.player)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "You wake at the harbour.", messages[0].Content)
	assert.Empty(t, script.Requests())
}

func TestIntroduceFallsBack(t *testing.T) {
	script := agenttest.NewScript()
	script.Err = errors.New("model unavailable")
	f := newFixture(t, script)

	messages, err := f.narrator.Introduce(context.Background(), f.world, f.player)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "Welcome to Eldoria, Ayla!")
}

func TestTurnRecordsAndSchedulesArchivist(t *testing.T) {
	script := agenttest.NewScript(
		agenttest.Calls(agenttest.Call("1", "add_location", tools.CreateInput{Name: "Misty Forest", Description: "A forest wrapped in fog"})),
	)
	script.Final = "The fog parts to reveal a path."
	f := newFixture(t, script)
	ctx := context.Background()

	narration, err := f.narrator.Turn(ctx, f.world, f.player, "I walk into the forest")
	require.NoError(t, err)
	assert.Equal(t, "The fog parts to reveal a path.", narration)

	found, err := f.env.Service.Search(ctx, f.world, store.KindLocation, "foggy forest", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	history, err := f.narrator.History(ctx, f.player)
	require.NoError(t, err)
	assert.Equal(t, []store.Message{
		{Role: narrator.RoleUser, Content: "I walk into the forest"},
		{Role: narrator.RoleAssistant, Content: "The fog parts to reveal a path."},
	}, history)

	f.env.Tasks.Wait()
	archived := f.archivist.Requests()
	require.NotEmpty(t, archived)
	assert.Contains(t, archived[0].Messages[0].Content, "The fog parts to reveal a path.")
	assert.Contains(t, agenttest.ToolNames(archived[0]), "merge_characters")
}

func TestTurnDeciderFailureKeepsHistory(t *testing.T) {
	script := agenttest.NewScript()
	script.Err = errors.New("model unavailable")
	f := newFixture(t, script)
	ctx := context.Background()

	_, err := f.narrator.Turn(ctx, f.world, f.player, "Hello?")
	require.Error(t, err)

	history, err := f.narrator.History(ctx, f.player)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.narrator.Turn(ctx, f.world, f.player, "   ")
	assert.Error(t, err)
}
