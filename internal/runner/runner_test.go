package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/autofram-dev/autofram/internal/convo"
	"github.com/autofram-dev/autofram/internal/dispatcher"
	"github.com/autofram-dev/autofram/internal/logging"
)

// scriptedLLM replays a fixed sequence of replies, one per
// ChatCompletion call, the way a fake model stands in for the network
// call in a scripted conversation test.
type scriptedLLM struct {
	replies []convo.Message
	calls   int
}

func (s *scriptedLLM) ChatCompletion(_ context.Context, _ []convo.Message, _ []dispatcher.Schema) (convo.Message, error) {
	if s.calls >= len(s.replies) {
		return convo.Message{}, fmt.Errorf("scriptedLLM: no more replies scripted (call %d)", s.calls)
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func newTestSink(t *testing.T) *logging.Sink {
	t.Helper()
	logsDir := filepath.Join(t.TempDir(), "logs")
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		t.Fatal(err)
	}
	sink, err := logging.NewRunnerSink(logsDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestExecuteToolCall(t *testing.T) {
	registry := dispatcher.NewRegistry()
	registry.Register(dispatcher.Tool{
		Name: "ok_tool",
		Handler: func(_ context.Context, _ string) (string, error) {
			return "all good", nil
		},
	})
	registry.Register(dispatcher.Tool{
		Name: "failing_tool",
		Handler: func(_ context.Context, _ string) (string, error) {
			return "", fmt.Errorf("FileNotFoundError: /no/such")
		},
	})

	r := &Runner{Sink: newTestSink(t), Registry: registry}

	t.Run("success passes handler output through", func(t *testing.T) {
		got := r.executeToolCall(t.Context(), convo.ToolCall{ID: "1", Function: convo.ToolCallFunction{Name: "ok_tool"}})
		if got != "all good" {
			t.Errorf("got %q, want %q", got, "all good")
		}
	})

	t.Run("handler error is rendered as Error: <message>", func(t *testing.T) {
		got := r.executeToolCall(t.Context(), convo.ToolCall{ID: "2", Function: convo.ToolCallFunction{Name: "failing_tool"}})
		want := "Error: FileNotFoundError: /no/such"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("unknown tool name is rendered as Error: UnknownTool", func(t *testing.T) {
		got := r.executeToolCall(t.Context(), convo.ToolCall{ID: "3", Function: convo.ToolCallFunction{Name: "does_not_exist"}})
		want := `Error: UnknownTool: "does_not_exist"`
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestToolLoopConvergesWithoutToolCalls(t *testing.T) {
	registry := dispatcher.NewRegistry()
	registry.Register(dispatcher.Tool{
		Name: "read_file",
		Handler: func(_ context.Context, _ string) (string, error) {
			return "file contents", nil
		},
	})

	script := &scriptedLLM{
		replies: []convo.Message{
			{Role: "assistant", Content: "done, nothing further to do"},
		},
	}
	r := &Runner{Sink: newTestSink(t), Registry: registry, LLM: script}

	first := convo.Message{
		Role: "assistant",
		ToolCalls: []convo.ToolCall{
			{ID: "call-1", Function: convo.ToolCallFunction{Name: "read_file", Arguments: `{"path":"a.txt"}`}},
		},
	}
	final, err := r.toolLoop(t.Context(), []convo.Message{convo.NewSystemMessage("sys")}, first)
	if err != nil {
		t.Fatal(err)
	}
	if final.Content != "done, nothing further to do" {
		t.Errorf("final.Content = %q", final.Content)
	}
	if script.calls != 1 {
		t.Errorf("expected exactly 1 chat completion call, got %d", script.calls)
	}
}

func TestToolLoopRespectsIterationCap(t *testing.T) {
	registry := dispatcher.NewRegistry()
	registry.Register(dispatcher.Tool{
		Name: "loop_tool",
		Handler: func(_ context.Context, _ string) (string, error) {
			return "again", nil
		},
	})

	// A model that always asks for another tool call, forever.
	alwaysCalling := convo.Message{
		Role: "assistant",
		ToolCalls: []convo.ToolCall{
			{ID: "x", Function: convo.ToolCallFunction{Name: "loop_tool"}},
		},
	}
	replies := make([]convo.Message, maxToolLoopIterations+5)
	for i := range replies {
		replies[i] = alwaysCalling
	}
	script := &scriptedLLM{replies: replies}
	r := &Runner{Sink: newTestSink(t), Registry: registry, LLM: script}

	_, err := r.toolLoop(t.Context(), []convo.Message{convo.NewSystemMessage("sys")}, alwaysCalling)
	if err != nil {
		t.Fatal(err)
	}
	if script.calls != maxToolLoopIterations {
		t.Errorf("expected the sub-loop to stop issuing calls at the cap (%d), got %d calls", maxToolLoopIterations, script.calls)
	}
}

func TestRunCycleSkipsWhenCommsUnchanged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "COMMS.md"), []byte("hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := dispatcher.NewRegistry()
	script := &scriptedLLM{replies: []convo.Message{{Role: "assistant", Content: "noop"}}}
	r := New(dir, "main", 0, newTestSink(t), script, nil, registry)

	if err := r.RunCycle(t.Context()); err != nil {
		t.Fatal(err)
	}
	if script.calls != 1 {
		t.Fatalf("first cycle should call the model once, got %d calls", script.calls)
	}

	if err := r.RunCycle(t.Context()); err != nil {
		t.Fatal(err)
	}
	if script.calls != 1 {
		t.Errorf("second cycle with unchanged COMMS.md should skip the model call, got %d calls", script.calls)
	}
}
