package local

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// buildCommunityContext implements step 4: count community matches among
// the selected entities, order communities by (matches desc, rank desc),
// and pack reports into the community budget. The matches annotation is
// used only for sorting and never appears in the returned table.
func (b *Builder) buildCommunityContext(
	selected []types.Entity,
	budget int,
	opts Options,
) (string, types.TableView) {
	name := opts.CommunityContextName
	if name == "" {
		name = "Reports"
	}
	cols := []string{"id", "title", "content", "rank"}
	emptyView := types.TableView{Name: name, Columns: cols}

	matches := map[int]int{}
	for _, e := range selected {
		if len(e.CommunityIDs) == 0 {
			continue
		}
		for _, cid := range e.CommunityIDs {
			matches[cid]++
		}
	}

	type candidate struct {
		report  types.CommunityReport
		matches int
	}
	var candidates []candidate
	for cid, count := range matches {
		report, ok := b.communityReports[cid]
		if !ok {
			continue
		}
		if report.Rank < float64(opts.MinCommunityRank) {
			continue
		}
		candidates = append(candidates, candidate{report: report, matches: count})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].matches != candidates[j].matches {
			return candidates[i].matches > candidates[j].matches
		}
		return candidates[i].report.Rank > candidates[j].report.Rank
	})

	if len(candidates) == 0 {
		return "", emptyView
	}

	header := "-----" + name + "-----\n"
	var rows [][]any
	var committed [][]any
	for _, c := range candidates {
		content := c.report.Summary
		if !opts.UseCommunitySummary {
			content = c.report.FullContent
		}
		row := []any{c.report.ID, c.report.Title, content, c.report.Rank}
		rows = append(rows, row)

		text := header + renderCSV(cols, rows, delimOr(opts.ColumnDelimiter))
		if budget > 0 && numTokens(text) > budget {
			break
		}
		committed = append([][]any{}, rows...)
	}

	text := header + renderCSV(cols, committed, delimOr(opts.ColumnDelimiter))
	return text, types.TableView{Name: name, Columns: cols, Rows: committed}
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
			parts[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString(strings.Join(parts, delim))
		b.WriteByte('\n')
	}
	return b.String()
}
