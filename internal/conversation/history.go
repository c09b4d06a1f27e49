// Package conversation implements the bounded conversation-history model
// (C4): turn storage, QA-turn grouping, user-turn extraction for query
// augmentation, and token-budgeted rendering as tabular system-prompt
// context.
package conversation

import (
	"strconv"
	"strings"

	"github.com/graphrag-query/go-graphrag-query/internal/tokenizer"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// Role is a conversation turn's role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation entry.
type Turn struct {
	Role    Role
	Content string
}

// QATurn groups one user question with the assistant answers that followed
// it, before the next user turn.
type QATurn struct {
	UserQuery        Turn
	AssistantAnswers []Turn // nil if include_user_turns_only was applied
}

// AnswerText joins the assistant answers with newlines, or "" if there are
// none.
func (q QATurn) AnswerText() string {
	if len(q.AssistantAnswers) == 0 {
		return ""
	}
	parts := make([]string, len(q.AssistantAnswers))
	for i, a := range q.AssistantAnswers {
		parts[i] = a.Content
	}
	return strings.Join(parts, "\n")
}

// History is a bounded, insertion-ordered turn log. MaxLength == 0 means
// unbounded.
type History struct {
	turns     []Turn
	maxLength int
}

// New returns an empty history bounded to maxLength turns (0 = unbounded).
func New(maxLength int) *History {
	return &History{maxLength: maxLength}
}

// FromList builds a History from role/content pairs, matching the on-wire
// message shape. max_length, if positive, drops the oldest turn whenever
// the list would otherwise exceed it — applied incrementally during
// construction, matching the source semantics.
func FromList(turns []types.Message, maxLength int) *History {
	h := &History{maxLength: maxLength}
	for _, t := range turns {
		role := Role(t.Role)
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			role = RoleUser
		}
		h.turns = append(h.turns, Turn{Role: role, Content: t.Content})
		if maxLength > 0 && len(h.turns) > maxLength {
			h.turns = h.turns[1:]
		}
	}
	return h
}

// AddTurn appends a new turn, dropping the oldest on overflow.
func (h *History) AddTurn(role Role, content string) {
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	if h.maxLength > 0 && len(h.turns) > h.maxLength {
		h.turns = h.turns[1:]
	}
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.turns)
}

// ToQATurns groups the history into QA turns: a user turn opens a new QA
// turn (closing the previous one, even if it had no answers); assistant
// turns before any user turn are dropped.
func (h *History) ToQATurns() []QATurn {
	if h == nil {
		return nil
	}
	var qaTurns []QATurn
	var current *QATurn
	for _, t := range h.turns {
		if t.Role == RoleUser {
			if current != nil {
				qaTurns = append(qaTurns, *current)
			}
			current = &QATurn{UserQuery: t}
			continue
		}
		if current != nil {
			current.AssistantAnswers = append(current.AssistantAnswers, t)
		}
	}
	if current != nil {
		qaTurns = append(qaTurns, *current)
	}
	return qaTurns
}

// GetUserTurns returns the content of the most recent maxN user turns,
// ordered oldest-first within that window.
//
// Open question resolved: the source carries two incompatible drafts of
// this method (most-recent-first vs oldest-first). This implementation
// walks backward to find the most recent maxN, then reverses the result so
// callers see them in the order they actually occurred — the choice
// documented in DESIGN.md.
func (h *History) GetUserTurns(maxN int) []string {
	if h == nil {
		return nil
	}
	var reversed []string
	for i := len(h.turns) - 1; i >= 0; i-- {
		t := h.turns[i]
		if t.Role != RoleUser {
			continue
		}
		reversed = append(reversed, t.Content)
		if maxN > 0 && len(reversed) >= maxN {
			break
		}
	}
	out := make([]string, len(reversed))
	for i, v := range reversed {
		out[len(reversed)-1-i] = v
	}
	return out
}

// BuildContextOptions configures History.BuildContext.
type BuildContextOptions struct {
	IncludeUserTurnsOnly bool
	MaxQATurns           int
	MaxTokens            int
	RecencyBias          bool
	ColumnDelimiter       string
	ContextName           string
}

// DefaultBuildContextOptions mirrors the source's defaults.
func DefaultBuildContextOptions() BuildContextOptions {
	return BuildContextOptions{
		IncludeUserTurnsOnly: true,
		MaxQATurns:           5,
		MaxTokens:            8000,
		RecencyBias:          true,
		ColumnDelimiter:      "|",
		ContextName:          "Conversation History",
	}
}

// BuildContext renders the history as a "turn | content" table under a
// banner header, growing row by row and reverting to the last row set that
// still fit MaxTokens when the next would overflow.
func (h *History) BuildContext(opts BuildContextOptions) (string, map[string]types.TableView) {
	qaTurns := h.ToQATurns()
	if opts.IncludeUserTurnsOnly {
		for i := range qaTurns {
			qaTurns[i].AssistantAnswers = nil
		}
	}
	if opts.RecencyBias {
		for l, r := 0, len(qaTurns)-1; l < r; l, r = l+1, r-1 {
			qaTurns[l], qaTurns[r] = qaTurns[r], qaTurns[l]
		}
	}
	if opts.MaxQATurns > 0 && len(qaTurns) > opts.MaxQATurns {
		qaTurns = qaTurns[:opts.MaxQATurns]
	}

	name := opts.ContextName
	if name == "" {
		name = "Conversation History"
	}
	key := strings.ToLower(name)
	if len(qaTurns) == 0 {
		return "", map[string]types.TableView{key: {Name: name, Columns: []string{"turn", "content"}}}
	}

	header := "-----" + name + "-----\n"
	delim := opts.ColumnDelimiter
	if delim == "" {
		delim = "|"
	}

	var rows [][]any
	var committed [][]any
	for _, qa := range qaTurns {
		rows = append(rows, []any{string(RoleUser), qa.UserQuery.Content})
		if len(qa.AssistantAnswers) > 0 {
			rows = append(rows, []any{string(RoleAssistant), qa.AnswerText()})
		}

		text := header + renderCSV([]string{"turn", "content"}, rows, delim)
		if opts.MaxTokens > 0 && tokenizer.NumTokens(text) > opts.MaxTokens {
			break
		}
		committed = append([][]any{}, rows...)
	}

	text := header + renderCSV([]string{"turn", "content"}, committed, delim)
	return text, map[string]types.TableView{key: {Name: name, Columns: []string{"turn", "content"}, Rows: committed}}
}

// ToMessages renders the stored turns back to wire messages, truncated to
// the last MaxLength entries (MaxLength == 0 => unbounded, i.e. the whole
// history).
func (h *History) ToMessages() []types.Message {
	if h == nil {
		return nil
	}
	turns := h.turns
	if h.maxLength > 0 && len(turns) > h.maxLength {
		turns = turns[len(turns)-h.maxLength:]
	}
	out := make([]types.Message, len(turns))
	for i, t := range turns {
		out[i] = types.Message{Role: string(t.Role), Content: t.Content}
	}
	return out
}

func renderCSV(cols []string, rows [][]any, delim string) string {
	var b strings.Builder
	b.WriteString(strings.Join(cols, delim))
	b.WriteByte('\n')
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = toCSVField(v)
		}
		b.WriteString(strings.Join(parts, delim))
		b.WriteByte('\n')
	}
	return b.String()
}

func toCSVField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
