package knowledge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/knowledge"
	"chronicle/internal/knowledge/knowledgetest"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
)

func TestSearchFindsOakhaven(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	oak := env.Entity(t, w, store.KindLocation, "Oakhaven", "A quiet fishing village")
	env.Entity(t, w, store.KindLocation, "Ashfall", "A smoking volcano")

	results, err := env.Service.Search(ctx, w, store.KindLocation, "fishing town", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, oak.ID, results[0].ID)
	assert.Greater(t, results[0].Similarity, 0.3)
}

func TestSearchIsWorldScoped(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	a := env.World(t, "Eldoria")
	b := env.World(t, "Norrath")

	env.Entity(t, b, store.KindItem, "Moonblade", "A sword forged from moonlight")

	results, err := env.Service.Search(ctx, a, store.KindItem, "moonlight sword", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = env.Service.Search(ctx, b, store.KindItem, "moonlight sword", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	env := knowledgetest.New(t)
	w := env.World(t, "Eldoria")

	_, err := env.Service.Search(context.Background(), w, store.KindCharacter, "   ", 10)
	require.Error(t, err)
	assert.True(t, knowledge.IsValidation(err))
	assert.ErrorIs(t, err, knowledge.ErrEmptyQuery)
}

func TestSearchPersonalitiesMergesKinds(t *testing.T) {
	env := knowledgetest.New(t)
	w := env.World(t, "Eldoria")

	env.Entity(t, w, store.KindCharacter, "Bram", "A grumpy dwarven blacksmith")
	env.Player(t, w, "user-1", "Ayla", "An elven blacksmith apprentice")
	env.Entity(t, w, store.KindCharacter, "Selene", "A moon priestess")

	results, err := env.Service.SearchPersonalities(context.Background(), w, "blacksmith", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	kinds := map[store.Kind]bool{}
	for _, r := range results {
		kinds[r.Kind] = true
	}
	assert.True(t, kinds[store.KindCharacter])
	assert.True(t, kinds[store.KindPlayer])
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestCreateValidation(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	_, err := env.Service.Create(ctx, w, store.KindPlayer, "Ayla", "A ranger")
	assert.True(t, knowledge.IsValidation(err), "players are not created by tools")

	_, err = env.Service.Create(ctx, w, store.KindCharacter, "", "nameless")
	assert.True(t, knowledge.IsValidation(err))

	_, err = env.Service.CreatePlayer(ctx, w, "", "Ayla", "A ranger")
	assert.True(t, knowledge.IsValidation(err))
}

func TestCreateSchedulesImage(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	tavern := env.Entity(t, w, store.KindLocation, "The Prancing Pony", "A crowded tavern")
	assert.Empty(t, tavern.ImageURL, "entity is usable before its image exists")
	env.Tasks.Wait()

	got, err := env.Service.Get(ctx, w, store.KindLocation, tavern.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ImageURL)

	worlds, err := env.Service.ListWorlds(ctx)
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.NotEmpty(t, worlds[0].ImageURL)
}

func TestImageFailureIsSilent(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	env.Images.Err = errors.New("image service down")

	item := env.Entity(t, w, store.KindItem, "Lantern", "A brass lantern")
	env.Tasks.Wait()

	got, err := env.Service.Get(ctx, w, store.KindItem, item.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)
}

func TestUpdateRecomputesEmbedding(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	mira := env.Entity(t, w, store.KindCharacter, "Mira", "A hooded stranger")
	updated, err := env.Service.Update(ctx, w, store.KindCharacter, mira.ID, "", "The blacksmith's daughter")
	require.NoError(t, err)
	assert.Equal(t, "Mira", updated.Name)
	assert.Equal(t, "The blacksmith's daughter", updated.Description)

	want, err := env.Embedder.Embed(ctx, knowledge.DescribeEntity(store.KindCharacter, "Mira", "The blacksmith's daughter"))
	require.NoError(t, err)
	assert.Equal(t, want, updated.Embedding)

	found, err := env.Service.Search(ctx, w, store.KindCharacter, "blacksmith daughter", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	stale, err := env.Service.Search(ctx, w, store.KindCharacter, "hooded stranger", 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	got, err := env.Service.Get(ctx, w, store.KindCharacter, mira.ID)
	require.NoError(t, err)
	assert.Equal(t, "The blacksmith's daughter", got.Description, "cached view must be invalidated")
}

func TestUpdateOtherWorldIsNotFound(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	a := env.World(t, "Eldoria")
	b := env.World(t, "Norrath")
	loc := env.Entity(t, b, store.KindLocation, "Qeynos", "A harbour city")

	_, err := env.Service.Update(ctx, a, store.KindLocation, loc.ID, "Qeynos", "Burned down")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.Service.Get(ctx, a, store.KindLocation, loc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlayerUpdatePublishes(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	p := env.Player(t, w, "user-1", "Ayla", "A ranger")

	sub := env.Hub.Subscribe(realtime.PlayerTopic(p.ID))
	defer sub.Close()

	_, err := env.Service.Update(ctx, w, store.KindPlayer, p.ID, "", "A ranger carrying a cursed amulet")
	require.NoError(t, err)

	select {
	case msg := <-sub.C():
		assert.Equal(t, realtime.MessageUpdate, msg.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected player update")
	}
}

func TestAddEventRequiresReferences(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	_, err := env.Service.AddEvent(ctx, w, knowledge.EventInput{Description: "Something happened"})
	require.Error(t, err)
	assert.ErrorIs(t, err, knowledge.ErrNoReferences)
	assert.True(t, knowledge.IsValidation(err))

	events, err := env.Store.ListEvents(ctx, w.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAddEventRejectsForeignEntities(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	a := env.World(t, "Eldoria")
	b := env.World(t, "Norrath")
	tavern := env.Entity(t, a, store.KindLocation, "Tavern", "A tavern")
	stranger := env.Entity(t, b, store.KindCharacter, "Stranger", "From another world")
	farLoc := env.Entity(t, b, store.KindLocation, "Far", "Far away")

	_, err := env.Service.AddEvent(ctx, a, knowledge.EventInput{
		Description: "A stranger walks in",
		Links:       store.EventLinks{LocationIDs: []int64{tavern.ID}, CharacterIDs: []int64{stranger.ID}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.Service.AddEvent(ctx, a, knowledge.EventInput{
		Description: "Somewhere far",
		Links:       store.EventLinks{LocationIDs: []int64{farLoc.ID}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	events, err := env.Store.ListEvents(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTavernEventsMostRecentFirst(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	tavern := env.Entity(t, w, store.KindLocation, "Tavern", "A smoky tavern")
	bard := env.Entity(t, w, store.KindCharacter, "Bard", "A wandering bard")

	first := env.Event(t, w, "A brawl broke out", store.EventLinks{LocationIDs: []int64{tavern.ID}})
	second := env.Event(t, w, "The bard sang", store.EventLinks{LocationIDs: []int64{tavern.ID, tavern.ID}, CharacterIDs: []int64{bard.ID}})

	events, err := env.Service.EventsFor(ctx, w, store.KindLocation, tavern.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, first.ID, events[1].ID)

	third := env.Event(t, w, "The fire went out", store.EventLinks{LocationIDs: []int64{tavern.ID}})
	events, err = env.Service.EventsFor(ctx, w, store.KindLocation, tavern.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3, "events view must be invalidated by a new event")
	assert.Equal(t, third.ID, events[0].ID)

	links, err := env.Service.EventLinks(ctx, w, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{tavern.ID}, links.LocationIDs)
	assert.Equal(t, []int64{bard.ID}, links.CharacterIDs)

	recent, err := env.Service.RecentEvents(ctx, w, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, third.ID, recent[0].ID)
}

func TestAddEventPublishesAndEmbedsLocation(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	tavern := env.Entity(t, w, store.KindLocation, "Tavern", "A smoky tavern")

	sub := env.Hub.Subscribe(realtime.WorldEventTopic(w.ID))
	defer sub.Close()

	env.Event(t, w, "a brawl broke out", store.EventLinks{LocationIDs: []int64{tavern.ID}})

	texts := env.Embedder.Texts()
	assert.Equal(t, "In Tavern, a brawl broke out", texts[len(texts)-1])

	select {
	case msg := <-sub.C():
		assert.Equal(t, realtime.MessageEvent, msg.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected world event")
	}

	found, err := env.Service.SearchEvents(ctx, w, "tavern brawl", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestWorlds(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()

	w, err := env.Service.CreateWorld(ctx, "The Shattered Isles", "Islands adrift", "")
	require.NoError(t, err)
	assert.Equal(t, "the-shattered-isles", w.Slug)

	got, err := env.Service.GetWorldBySlug(ctx, "the-shattered-isles")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	_, err = env.Service.CreateWorld(ctx, "Again", "dup", "the-shattered-isles")
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = env.Service.CreateWorld(ctx, "Bad", "slug", "Not A Slug")
	assert.True(t, knowledge.IsValidation(err))

	_, err = env.Service.GetWorldBySlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlayerForIdentity(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	p := env.Player(t, w, "user-1", "Ayla", "A ranger")
	env.Player(t, w, "user-2", "Borin", "A dwarf")

	got, err := env.Service.PlayerForIdentity(ctx, w, p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = env.Service.PlayerForIdentity(ctx, w, p.ID, "user-2")
	assert.ErrorIs(t, err, knowledge.ErrIdentityMismatch)

	owned, err := env.Service.PlayersForIdentity(ctx, w, "user-2")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Borin", owned[0].Name)
}
