// Package global implements the Global Context Builder (C6): orders
// community reports by rank (optionally shuffled on ties with a fixed
// seed), then greedily batches them into one-or-more token-budgeted map
// phase chunks, prefixed with a conversation-history context block.
package global

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/graphrag-query/go-graphrag-query/internal/conversation"
	"github.com/graphrag-query/go-graphrag-query/internal/tokenizer"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// Options configures BuildContext.
type Options struct {
	UseCommunitySummary              bool
	ColumnDelimiter                  string
	ShuffleData                      bool
	IncludeCommunityRank             bool
	MinCommunityRank                 int
	CommunityRankName                string
	IncludeCommunityWeight           bool
	CommunityWeightName              string
	NormalizeCommunityWeight         bool
	MaxTokens                        int
	ContextName                      string
	ConversationHistoryUserTurnsOnly bool
	ConversationHistoryMaxTurns      int
	RandomSeed                       uint64
}

// DefaultOptions mirrors the source's defaults.
func DefaultOptions() Options {
	return Options{
		UseCommunitySummary:              true,
		ColumnDelimiter:                  "|",
		ShuffleData:                      true,
		IncludeCommunityWeight:           true,
		CommunityWeightName:              "occurrence",
		NormalizeCommunityWeight:         true,
		MaxTokens:                        8000,
		ContextName:                      "Reports",
		ConversationHistoryUserTurnsOnly: true,
		ConversationHistoryMaxTurns:      5,
		RandomSeed:                       42,
	}
}

// Context is either a single batch (IsBatched == false) or a list of
// batches for the map phase — modeled as a small tagged struct rather than
// an `any` so call sites stay exhaustive.
type Context struct {
	Text      string
	Batches   []string
	IsBatched bool
}

// Builder holds read-only community reports plus their per-community text
// unit membership, used to compute the occurrence weight.
type Builder struct {
	reports       []types.CommunityReport
	weightByCID   map[int]float64
}

// NewBuilder indexes community reports and derives each community's
// weight as the count of text units referenced by its member entities,
// min-max normalized to [0,1] when requested at build time.
func NewBuilder(reports []types.CommunityReport, entities []types.Entity) *Builder {
	counts := map[int]float64{}
	for _, e := range entities {
		for _, cid := range e.CommunityIDs {
			counts[cid] += float64(len(e.TextUnitIDs))
		}
	}
	return &Builder{reports: reports, weightByCID: counts}
}

// BuildContext runs the batching algorithm and returns either a single
// string or a list of batch strings, plus the per-section tabular view.
func (b *Builder) BuildContext(history *conversation.History, opts Options) (Context, map[string]types.TableView, error) {
	name := opts.ContextName
	if name == "" {
		name = "Reports"
	}
	cols := []string{"id", "title", "content", "rank"}
	if opts.IncludeCommunityWeight {
		cols = append(cols, weightNameOrDefault(opts.CommunityWeightName))
	}

	historyText := ""
	if history != nil && history.Len() > 0 {
		text, _ := history.BuildContext(conversation.BuildContextOptions{
			IncludeUserTurnsOnly: opts.ConversationHistoryUserTurnsOnly,
			MaxQATurns:           opts.ConversationHistoryMaxTurns,
			MaxTokens:            opts.MaxTokens,
			RecencyBias:          true,
			ColumnDelimiter:      opts.ColumnDelimiter,
			ContextName:          "Conversation History",
		})
		historyText = text
	}

	reports := b.orderedReports(opts)

	var batches []string
	var allRows [][]any
	header := "-----" + name + "-----\n"

	var current [][]any
	for _, r := range reports {
		if r.Rank < float64(opts.MinCommunityRank) {
			continue
		}
		content := r.Summary
		if !opts.UseCommunitySummary {
			content = r.FullContent
		}
		row := []any{r.ID, r.Title, content, r.Rank}
		if opts.IncludeCommunityWeight {
			row = append(row, b.weightFor(r.CommunityID, opts))
		}

		candidate := append(append([][]any{}, current...), row)
		text := header + renderCSV(cols, candidate, delimOr(opts.ColumnDelimiter))
		if opts.MaxTokens > 0 && tokenizer.NumTokens(text) > opts.MaxTokens && len(current) > 0 {
			batches = append(batches, joinHistoryAndBatch(historyText, header+renderCSV(cols, current, delimOr(opts.ColumnDelimiter))))
			allRows = append(allRows, current...)
			current = [][]any{row}
			continue
		}
		current = candidate
	}
	if len(current) > 0 {
		batches = append(batches, joinHistoryAndBatch(historyText, header+renderCSV(cols, current, delimOr(opts.ColumnDelimiter))))
		allRows = append(allRows, current...)
	}

	view := map[string]types.TableView{strings.ToLower(name): {Name: name, Columns: cols, Rows: allRows}}

	if len(batches) == 0 {
		return Context{Text: historyText, IsBatched: false}, view, nil
	}
	if len(batches) == 1 {
		return Context{Text: batches[0], IsBatched: false}, view, nil
	}
	return Context{Batches: batches, IsBatched: true}, view, nil
}

func joinHistoryAndBatch(history, batch string) string {
	if history == "" {
		return batch
	}
	return history + "\n\n" + batch
}

func (b *Builder) orderedReports(opts Options) []types.CommunityReport {
	reports := append([]types.CommunityReport{}, b.reports...)
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Rank > reports[j].Rank })
	if opts.ShuffleData {
		shuffleTiedGroups(reports, opts.RandomSeed)
	}
	return reports
}

// shuffleTiedGroups shuffles within runs of equal rank using a seeded PCG
// source, matching the source's fixed random_state for reproducibility.
func shuffleTiedGroups(reports []types.CommunityReport, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	i := 0
	for i < len(reports) {
		j := i + 1
		for j < len(reports) && reports[j].Rank == reports[i].Rank {
			j++
		}
		r.Shuffle(j-i, func(a, c int) {
			reports[i+a], reports[i+c] = reports[i+c], reports[i+a]
		})
		i = j
	}
}

func (b *Builder) weightFor(communityID int, opts Options) float64 {
	raw := b.weightByCID[communityID]
	if !opts.NormalizeCommunityWeight {
		return raw
	}
	min, max := raw, raw
	for _, v := range b.weightByCID {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		return 0
	}
	return (raw - min) / (max - min)
}

func weightNameOrDefault(name string) string {
	if name == "" {
		return "occurrence"
	}
	return name
}

func delimOr(d string) string {
	if d == "" {
		return "|"
	}
	return d
}

func renderCSV(cols []string, rows [][]any, delim string) string {
	var b strings.Builder
	b.WriteString(strings.Join(cols, delim))
	b.WriteByte('\n')
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = toField(v)
		}
		b.WriteString(strings.Join(parts, delim))
		b.WriteByte('\n')
	}
	return b.String()
}

func toField(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
