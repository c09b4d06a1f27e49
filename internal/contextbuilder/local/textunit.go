package local

import (
	"sort"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// buildTextUnitContext implements step 6: collect each selected entity's
// referenced text units (deduplicated, in entity rank order), annotate
// with (entityOrder, numRelationships) for sorting, then pack under the
// text-unit budget.
func (b *Builder) buildTextUnitContext(
	selected []types.Entity,
	budget int,
	opts Options,
) (string, types.TableView) {
	cols := []string{"id", "text"}
	name := "Sources"
	header := "-----" + name + "-----\n"
	emptyView := types.TableView{Name: name, Columns: cols}

	type candidate struct {
		unit             types.TextUnit
		entityOrder      int
		numRelationships int
	}

	seenIDs := map[string]struct{}{}
	var candidates []candidate
	for order, e := range selected {
		for _, tuid := range e.TextUnitIDs {
			if _, ok := seenIDs[tuid]; ok {
				continue
			}
			seenIDs[tuid] = struct{}{}
			unit, ok := b.textUnits[tuid]
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{
				unit:             unit,
				entityOrder:      order,
				numRelationships: b.countRelationships(unit, e),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].entityOrder != candidates[j].entityOrder {
			return candidates[i].entityOrder < candidates[j].entityOrder
		}
		return candidates[i].numRelationships > candidates[j].numRelationships
	})

	if len(candidates) == 0 {
		return "", emptyView
	}

	var rows [][]any
	var committed [][]any
	for _, c := range candidates {
		rows = append(rows, []any{c.unit.ID, c.unit.Text})
		text := header + renderCSV(cols, rows, delimOr(opts.ColumnDelimiter))
		if budget > 0 && numTokens(text) > budget {
			break
		}
		committed = append([][]any{}, rows...)
	}

	text := header + renderCSV(cols, committed, delimOr(opts.ColumnDelimiter))
	return text, types.TableView{Name: name, Columns: cols, Rows: committed}
}

// countRelationships counts relationships whose source or target matches
// entity and whose id appears in unit's RelationshipIDs.
func (b *Builder) countRelationships(unit types.TextUnit, entity types.Entity) int {
	n := 0
	for _, r := range b.relationships {
		if r.Source != entity.Title && r.Target != entity.Title {
			continue
		}
		for _, tuid := range unit.RelationshipIDs {
			if tuid == r.ID {
				n++
				break
			}
		}
	}
	return n
}
