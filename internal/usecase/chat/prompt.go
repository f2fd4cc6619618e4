package chat

import (
	"fmt"
	"strings"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

const contextInstructions = "Answer using the context passages below when they are relevant. " +
	"Each passage is tagged with its source file and page. " +
	"If the context does not cover the question, say so instead of inventing an answer."

// composePrompt assembles the ordered message list for generation:
// system prompt with retrieved context first, then the history window,
// then the current question.
func composePrompt(
	agentPrompt string,
	chunks []entity.ScoredChunk,
	window []*entity.Message,
	userText string,
) []entity.PromptMessage {
	var system strings.Builder
	system.WriteString(strings.TrimSpace(agentPrompt))

	if len(chunks) > 0 {
		system.WriteString("\n\n")
		system.WriteString(contextInstructions)
		system.WriteString("\n\nContext:\n")
		for _, sc := range chunks {
			system.WriteString(fmt.Sprintf("\n[%s, page %d]\n%s\n", sc.Chunk.Filename, sc.Chunk.Page, sc.Chunk.Text))
		}
	}

	prompt := make([]entity.PromptMessage, 0, len(window)+2)
	prompt = append(prompt, entity.PromptMessage{Role: entity.RoleSystem, Content: system.String()})

	for _, msg := range window {
		role := entity.RoleUser
		if msg.Sender == entity.SenderBot {
			role = entity.RoleAssistant
		}
		prompt = append(prompt, entity.PromptMessage{Role: role, Content: msg.Text})
	}

	prompt = append(prompt, entity.PromptMessage{Role: entity.RoleUser, Content: userText})
	return prompt
}

// sourceRefs collapses retrieval hits into citations, one per file and
// page, keeping the best score when several chunks share a page.
func sourceRefs(chunks []entity.ScoredChunk) []entity.SourceRef {
	if len(chunks) == 0 {
		return nil
	}

	var refs []entity.SourceRef
	index := make(map[string]int)
	for _, sc := range chunks {
		key := fmt.Sprintf("%s:%d", sc.Chunk.Filename, sc.Chunk.Page)
		if i, ok := index[key]; ok {
			if sc.Score > refs[i].Score {
				refs[i].Score = sc.Score
			}
			continue
		}
		index[key] = len(refs)
		refs = append(refs, entity.SourceRef{
			Filename: sc.Chunk.Filename,
			Page:     sc.Chunk.Page,
			Score:    sc.Score,
		})
	}
	return refs
}
