package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/logging"
)

type scriptedDecider struct {
	steps    []Step
	err      error
	requests []Request
}

func (d *scriptedDecider) Next(ctx context.Context, req Request) (Step, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return Step{}, d.err
	}
	if len(d.steps) == 0 {
		return Step{Text: "done"}, nil
	}
	s := d.steps[0]
	d.steps = d.steps[1:]
	return s, nil
}

type recordingExecutor struct {
	calls []string
	fail  map[string]error
}

func (e *recordingExecutor) Call(ctx context.Context, name string, input json.RawMessage) (any, error) {
	e.calls = append(e.calls, name)
	if err := e.fail[name]; err != nil {
		return nil, err
	}
	return map[string]string{"tool": name}, nil
}

func call(id, name string) ToolCall {
	return ToolCall{ID: id, Name: name, Input: json.RawMessage(`{}`)}
}

func TestRunStopsWhenNoCalls(t *testing.T) {
	d := &scriptedDecider{steps: []Step{
		{Calls: []ToolCall{call("1", "get_world_locations"), call("2", "get_world_npcs")}},
		{Text: "You enter the tavern."},
	}}
	exec := &recordingExecutor{}
	r := NewRunner(d, logging.Discard())

	out, err := r.Run(context.Background(), Task{Executor: exec, MaxSteps: 10, Tools: []ToolSpec{{Name: "get_world_locations"}}})
	require.NoError(t, err)
	assert.Equal(t, "You enter the tavern.", out.Text)
	assert.Equal(t, 2, out.Steps)
	assert.False(t, out.Exhausted)
	assert.Equal(t, []string{"get_world_locations", "get_world_npcs"}, exec.calls)

	require.Len(t, d.requests, 2)
	require.Len(t, d.requests[1].Exchanges, 1)
	results := d.requests[1].Exchanges[0].Results
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].CallID)
	assert.JSONEq(t, `{"tool":"get_world_locations"}`, results[0].Content)
}

func TestRunFeedsToolErrorsBack(t *testing.T) {
	d := &scriptedDecider{steps: []Step{
		{Calls: []ToolCall{call("a", "add_world_event")}},
		{Text: "recovered"},
	}}
	exec := &recordingExecutor{fail: map[string]error{"add_world_event": errors.New("event must reference at least one entity")}}
	r := NewRunner(d, logging.Discard())

	out, err := r.Run(context.Background(), Task{Executor: exec, MaxSteps: 5, Tools: []ToolSpec{{Name: "add_world_event"}}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Text)
	res := out.Exchanges[0].Results[0]
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "at least one entity")
}

func TestRunRespectsBudget(t *testing.T) {
	steps := make([]Step, 20)
	for i := range steps {
		steps[i] = Step{Text: "thinking", Calls: []ToolCall{call("x", "get_current_player")}}
	}
	d := &scriptedDecider{steps: steps}
	exec := &recordingExecutor{}
	r := NewRunner(d, logging.Discard())

	out, err := r.Run(context.Background(), Task{Executor: exec, MaxSteps: 3, Tools: []ToolSpec{{Name: "get_current_player"}}})
	require.NoError(t, err)
	assert.True(t, out.Exhausted)
	assert.Equal(t, 3, out.Steps)
	assert.Len(t, exec.calls, 3)
}

func TestRunDeciderFailure(t *testing.T) {
	d := &scriptedDecider{err: errors.New("overloaded")}
	r := NewRunner(d, logging.Discard())

	_, err := r.Run(context.Background(), Task{MaxSteps: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestRunCancelledContext(t *testing.T) {
	d := &scriptedDecider{}
	r := NewRunner(d, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Task{MaxSteps: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.requests)
}

func TestRunRejectsZeroBudget(t *testing.T) {
	r := NewRunner(&scriptedDecider{}, logging.Discard())
	_, err := r.Run(context.Background(), Task{})
	assert.Error(t, err)
}
