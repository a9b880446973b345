package testutil

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
)

// A2AReply is what an A2A agent returned for one question.
type A2AReply struct {
	Card *a2a.AgentCard
	Text string
	// State is the final task state, empty when the agent answered with a
	// bare message.
	State    a2a.TaskState
	Duration time.Duration
}

var cardResolver = agentcard.NewResolver(&http.Client{Timeout: 10 * time.Second})

// AskA2A resolves the agent card published under baseURL and sends
// question as a single user message.
func AskA2A(ctx context.Context, baseURL, question string) (A2AReply, error) {
	start := time.Now()
	card, err := cardResolver.Resolve(ctx, baseURL)
	if err != nil {
		return A2AReply{}, fmt.Errorf("resolve agent card at %s: %w", baseURL, err)
	}
	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return A2AReply{}, fmt.Errorf("client for %s: %w", card.URL, err)
	}
	defer client.Destroy()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: question})
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return A2AReply{}, fmt.Errorf("send to %s: %w", card.URL, err)
	}

	reply := A2AReply{Card: card, Text: replyText(result), Duration: time.Since(start)}
	if task, ok := result.(*a2a.Task); ok {
		reply.State = task.Status.State
	}
	return reply, nil
}

// replyText picks the answer out of a send result. Artifacts win over the
// status message, which wins over the agent's latest history entry.
func replyText(result a2a.SendMessageResult) string {
	if msg, ok := result.(*a2a.Message); ok {
		return textOf(msg.Parts)
	}
	task, ok := result.(*a2a.Task)
	if !ok {
		return ""
	}

	var chunks []string
	for _, art := range task.Artifacts {
		if art != nil {
			chunks = appendText(chunks, art.Parts)
		}
	}
	if len(chunks) > 0 {
		return strings.Join(chunks, "\n")
	}
	if m := task.Status.Message; m != nil {
		if s := textOf(m.Parts); s != "" {
			return s
		}
	}
	for i := len(task.History) - 1; i >= 0; i-- {
		if m := task.History[i]; m.Role == a2a.MessageRoleAgent {
			if s := textOf(m.Parts); s != "" {
				return s
			}
		}
	}
	return ""
}

func textOf(parts a2a.ContentParts) string {
	return strings.Join(appendText(nil, parts), "\n")
}

func appendText(dst []string, parts a2a.ContentParts) []string {
	for _, p := range parts {
		if tp, ok := p.(a2a.TextPart); ok && tp.Text != "" {
			dst = append(dst, tp.Text)
		}
	}
	return dst
}
