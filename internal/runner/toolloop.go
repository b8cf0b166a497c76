package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/autofram-dev/autofram/internal/convo"
	"github.com/autofram-dev/autofram/internal/dispatcher"
	"github.com/autofram-dev/autofram/internal/tools"
)

// toolLoop drives the tool-call sub-loop to convergence: execute every
// tool call in the assistant's reply, feed the results back, and
// re-issue a chat completion, stopping as soon as a reply carries no
// tool calls or the defensive iteration cap is hit.
func (r *Runner) toolLoop(ctx context.Context, messages []convo.Message, first convo.Message) (convo.Message, error) {
	messages = append(messages, first)
	current := first
	schemas := r.Registry.ListSchemas()

	for iteration := 0; ; iteration++ {
		if iteration >= maxToolLoopIterations {
			r.Sink.Logger().Warn("tool-call sub-loop hit defensive cap, aborting", "iterations", iteration)
			for _, call := range current.ToolCalls {
				messages = append(messages, convo.NewToolResultMessage(call.ID, "Error: MaxIterations: tool-call sub-loop exceeded its defensive cap"))
			}
			return current, nil
		}

		for _, call := range current.ToolCalls {
			content := r.executeToolCall(ctx, call)
			if err := r.Sink.ModelLog().Append("tool_result", map[string]any{
				"name":    call.Function.Name,
				"args":    dispatcher.ArgsPreview(call.Function.Arguments),
				"content": content,
			}); err != nil {
				r.Sink.Logger().Warn("model log append failed", "err", err)
			}
			messages = append(messages, convo.NewToolResultMessage(call.ID, content))
		}

		if err := r.Sink.ModelLog().Append("request", messages); err != nil {
			r.Sink.Logger().Warn("model log append failed", "err", err)
		}
		reply, err := r.LLM.ChatCompletion(ctx, messages, schemas)
		if err != nil {
			return current, fmt.Errorf("chat completion: %w", err)
		}
		if err := r.Sink.ModelLog().Append("response", reply); err != nil {
			r.Sink.Logger().Warn("model log append failed", "err", err)
		}

		messages = append(messages, reply)
		if len(reply.ToolCalls) == 0 {
			return reply, nil
		}
		current = reply
	}
}

// executeToolCall runs one tool call through the registry and renders
// its outcome into tool-result content: a
// directory-read attempt becomes a human-phrased `ls` hint, any other
// error becomes "Error: <message>", and success passes the handler's
// output through unchanged.
func (r *Runner) executeToolCall(ctx context.Context, call convo.ToolCall) string {
	r.Sink.Logger().Info("executing tool", "name", call.Function.Name, "args", dispatcher.ArgsPreview(call.Function.Arguments))
	out, err := r.Registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
	if err == nil {
		return out
	}
	var dirErr *tools.IsDirectoryError
	if errors.As(err, &dirErr) {
		return dirErr.Error()
	}
	r.Sink.Logger().Warn("tool call failed", "name", call.Function.Name, "err", err)
	return "Error: " + err.Error()
}
