package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

func TestFindAgent(t *testing.T) {
	agents := []*entity.AgentSummary{
		{ID: "a1", Name: "Physics Tutor"},
		{ID: "a2", Name: "Law Clerk"},
	}

	assert.Equal(t, "a1", findAgent(agents, "1").ID)
	assert.Equal(t, "a2", findAgent(agents, "2").ID)
	assert.Nil(t, findAgent(agents, "0"))
	assert.Nil(t, findAgent(agents, "3"))

	assert.Equal(t, "a2", findAgent(agents, "law clerk").ID)
	assert.Nil(t, findAgent(agents, "Chemistry Tutor"))
}

func TestRenderReply(t *testing.T) {
	reply := &entity.ChatReply{
		Message: &entity.Message{Text: "The speed of light is c."},
		Sources: []entity.SourceRef{
			{Filename: "physics.pdf", Page: 3},
			{Filename: "notes.txt", Page: 1},
		},
	}

	text := renderReply(reply)
	assert.Contains(t, text, "The speed of light is c.")
	assert.Contains(t, text, "- physics.pdf, page 3")
	assert.Contains(t, text, "- notes.txt, page 1")

	bare := renderReply(&entity.ChatReply{Message: &entity.Message{Text: "hi"}})
	assert.Equal(t, "hi", bare)
}
