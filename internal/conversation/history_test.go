package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserTurns_OldestFirstWithinWindow(t *testing.T) {
	h := New(0)
	h.AddTurn(RoleUser, "q1")
	h.AddTurn(RoleAssistant, "a1")
	h.AddTurn(RoleUser, "q2")
	h.AddTurn(RoleAssistant, "a2")
	h.AddTurn(RoleUser, "q3")

	got := h.GetUserTurns(2)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"q2", "q3"}, got)
}

func TestGetUserTurns_MoreThanAvailable(t *testing.T) {
	h := New(0)
	h.AddTurn(RoleUser, "only")

	got := h.GetUserTurns(5)
	assert.Equal(t, []string{"only"}, got)
}

func TestToQATurns_DanglingAssistantDropped(t *testing.T) {
	h := New(0)
	h.AddTurn(RoleAssistant, "stray")
	h.AddTurn(RoleUser, "q1")
	h.AddTurn(RoleAssistant, "a1")

	qa := h.ToQATurns()
	require.Len(t, qa, 1)
	assert.Equal(t, "q1", qa[0].UserQuery.Content)
	assert.Equal(t, "a1", qa[0].AnswerText())
}

func TestToQATurns_ConsecutiveUserTurnsCloseThePrevious(t *testing.T) {
	h := New(0)
	h.AddTurn(RoleUser, "q1")
	h.AddTurn(RoleUser, "q2")
	h.AddTurn(RoleAssistant, "a2")

	qa := h.ToQATurns()
	require.Len(t, qa, 2)
	assert.Equal(t, "q1", qa[0].UserQuery.Content)
	assert.Empty(t, qa[0].AnswerText())
	assert.Equal(t, "q2", qa[1].UserQuery.Content)
	assert.Equal(t, "a2", qa[1].AnswerText())
}

func TestAddTurn_BoundedOverflow(t *testing.T) {
	h := New(2)
	h.AddTurn(RoleUser, "1")
	h.AddTurn(RoleAssistant, "2")
	h.AddTurn(RoleUser, "3")

	assert.Equal(t, 2, h.Len())
	msgs := h.ToMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "2", msgs[0].Content)
	assert.Equal(t, "3", msgs[1].Content)
}

func TestBuildContext_EmptyHistoryYieldsEmptyHeaderTable(t *testing.T) {
	h := New(0)
	text, data := h.BuildContext(DefaultBuildContextOptions())
	assert.Empty(t, text)
	view, ok := data["conversation history"]
	require.True(t, ok)
	assert.True(t, view.Empty())
}
