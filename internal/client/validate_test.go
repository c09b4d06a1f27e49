package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

func msg(role, content string) types.Message { return types.Message{Role: role, Content: content} }

func TestValidateMessages_Empty(t *testing.T) {
	err := ValidateMessages(nil)
	assert.True(t, errors.Is(err, ierrors.ErrBadMessage))
}

func TestValidateMessages_RejectsSystemRole(t *testing.T) {
	err := ValidateMessages([]types.Message{msg(types.RoleSystem, "x"), msg(types.RoleUser, "q")})
	assert.True(t, errors.Is(err, ierrors.ErrBadMessage))
}

func TestValidateMessages_LastMustBeUser(t *testing.T) {
	err := ValidateMessages([]types.Message{msg(types.RoleUser, "q"), msg(types.RoleAssistant, "a")})
	assert.True(t, errors.Is(err, ierrors.ErrBadMessage))
}

func TestValidateMessages_RejectsRepeatedRole(t *testing.T) {
	err := ValidateMessages([]types.Message{msg(types.RoleUser, "q1"), msg(types.RoleUser, "q2")})
	assert.True(t, errors.Is(err, ierrors.ErrBadMessage))
}

func TestValidateMessages_AcceptsAlternatingHistory(t *testing.T) {
	err := ValidateMessages([]types.Message{
		msg(types.RoleUser, "q1"),
		msg(types.RoleAssistant, "a1"),
		msg(types.RoleUser, "q2"),
	})
	assert.NoError(t, err)
}
