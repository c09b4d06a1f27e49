package local

import (
	"sort"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// buildLocalSection implements step 5: render the selected-entity table
// once, in full (its tokens count toward the local budget but the table
// itself is never truncated), then iteratively
// grow a cumulative relationship table (plus one covariate table per
// covariate class) over the entities added so far, reverting to the last
// snapshot that fit the budget and stopping on the first overflow.
func (b *Builder) buildLocalSection(
	selected []types.Entity,
	budget int,
	opts Options,
) (string, map[string]types.TableView) {
	entityText, entityView := b.renderEntityTable(selected, opts)
	entityTokens := numTokens(entityText)

	views := map[string]types.TableView{"entities": entityView}

	var addedEntities []types.Entity
	var finalContext []string
	finalViews := map[string]types.TableView{}

	for _, e := range selected {
		candidateEntities := append(append([]types.Entity{}, addedEntities...), e)

		relText, relView := b.renderRelationshipTable(candidateEntities, opts)
		relTokens := numTokens(relText)

		covTexts := map[string]string{}
		covViews := map[string]types.TableView{}
		covTokensTotal := 0
		for covType, covs := range b.covariates {
			text, view := b.renderCovariateTable(candidateEntities, covType, covs, opts)
			covTexts[covType] = text
			covViews[covType] = view
			covTokensTotal += numTokens(text)
		}

		total := entityTokens + relTokens + covTokensTotal
		if budget > 0 && total > budget {
			break
		}

		addedEntities = candidateEntities
		current := []string{}
		if relText != "" {
			current = append(current, relText)
		}
		for _, t := range covTexts {
			if t != "" {
				current = append(current, t)
			}
		}
		finalContext = current
		finalViews["relationships"] = relView
		for k, v := range covViews {
			finalViews[k] = v
		}
	}

	for k, v := range finalViews {
		views[k] = v
	}

	text := entityText
	if len(finalContext) > 0 {
		text = entityText + "\n\n" + joinNonEmpty(finalContext)
	}
	return text, views
}

func joinNonEmpty(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

func (b *Builder) renderEntityTable(selected []types.Entity, opts Options) (string, types.TableView) {
	cols := []string{"id", "entity", "description"}
	if opts.IncludeEntityRank {
		cols = append(cols, opts.RankDescriptionOrDefault())
	}
	header := "-----Entities-----\n"
	rows := make([][]any, 0, len(selected))
	for _, e := range selected {
		row := []any{e.ID, e.Title, e.Description}
		if opts.IncludeEntityRank {
			row = append(row, e.Rank)
		}
		rows = append(rows, row)
	}
	text := header + renderCSV(cols, rows, delimOr(opts.ColumnDelimiter))
	return text, types.TableView{Name: "Entities", Columns: cols, Rows: rows}
}

// RankDescriptionOrDefault returns the configured rank column label or the
// spec default.
func (o Options) RankDescriptionOrDefault() string {
	if o.RankDescription == "" {
		return "number of relationships"
	}
	return o.RankDescription
}

func (b *Builder) renderRelationshipTable(entities []types.Entity, opts Options) (string, types.TableView) {
	titles := map[string]struct{}{}
	for _, e := range entities {
		titles[e.Title] = struct{}{}
	}

	var candidates []types.Relationship
	for _, r := range b.relationships {
		_, srcIn := titles[r.Source]
		_, dstIn := titles[r.Target]
		if srcIn || dstIn {
			candidates = append(candidates, r)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if opts.IncludeRelationshipWeight && candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		if candidates[i].CombinedDegree != candidates[j].CombinedDegree {
			return candidates[i].CombinedDegree > candidates[j].CombinedDegree
		}
		return candidates[i].Weight > candidates[j].Weight
	})

	k := opts.TopKRelationships
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	cols := []string{"id", "source", "target", "description"}
	if opts.IncludeRelationshipWeight {
		cols = append(cols, "weight")
	}
	header := "-----Relationships-----\n"
	rows := make([][]any, 0, len(candidates))
	for _, r := range candidates {
		row := []any{r.ID, r.Source, r.Target, r.Description}
		if opts.IncludeRelationshipWeight {
			row = append(row, r.Weight)
		}
		rows = append(rows, row)
	}
	text := ""
	if len(rows) > 0 {
		text = header + renderCSV(cols, rows, delimOr(opts.ColumnDelimiter))
	}
	return text, types.TableView{Name: "Relationships", Columns: cols, Rows: rows}
}

func (b *Builder) renderCovariateTable(
	entities []types.Entity,
	covType string,
	covs []types.Covariate,
	opts Options,
) (string, types.TableView) {
	titles := map[string]struct{}{}
	for _, e := range entities {
		titles[e.Title] = struct{}{}
	}

	var rows [][]any
	for _, c := range covs {
		if _, ok := titles[c.SubjectID]; !ok {
			continue
		}
		rows = append(rows, []any{c.ID, c.SubjectID, c.CovariateType})
	}
	cols := []string{"id", "subject", "type"}
	if len(rows) == 0 {
		return "", types.TableView{Name: covType, Columns: cols}
	}
	header := "-----" + covType + "-----\n"
	text := header + renderCSV(cols, rows, delimOr(opts.ColumnDelimiter))
	return text, types.TableView{Name: covType, Columns: cols, Rows: rows}
}
