package client

import (
	"fmt"

	"github.com/samber/lo"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// ValidateMessages enforces the wire contract's message-list invariants:
// non-empty, no system role, strictly alternating user/assistant, and
// ending on a user turn. The first message's role is checked only through
// the alternation rule, so a list may begin with an assistant turn.
func ValidateMessages(messages []types.Message) error {
	if len(messages) == 0 {
		return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("messages must not be empty"))
	}
	if lo.ContainsBy(messages, func(m types.Message) bool { return m.Role == types.RoleSystem }) {
		return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("system role is not permitted in the message list"))
	}
	if messages[len(messages)-1].Role != types.RoleUser {
		return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("last message must have role %q", types.RoleUser))
	}
	for i := 1; i < len(messages); i++ {
		prev, cur := messages[i-1].Role, messages[i].Role
		if prev != types.RoleUser && prev != types.RoleAssistant {
			return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("message %d has unsupported role %q", i-1, prev))
		}
		if cur != types.RoleUser && cur != types.RoleAssistant {
			return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("message %d has unsupported role %q", i, cur))
		}
		if prev == cur {
			return ierrors.Wrap(ierrors.ErrBadMessage, fmt.Errorf("messages must alternate roles (index %d repeats %q)", i, cur))
		}
	}
	return nil
}
