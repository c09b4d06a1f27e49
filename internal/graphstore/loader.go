// Package graphstore implements the Graph Store Loader (C1): reads the
// columnar parquet tables produced by the offline graph-construction
// pipeline and projects them into the typed domain records the rest of the
// engine consumes, then hands off to one-way factory methods that build a
// Local or Global context builder — breaking the builder/loader cycle the
// source's duck-typed loader carries.
package graphstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/models/embedding"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
	"github.com/graphrag-query/go-graphrag-query/internal/vectorstore"

	localctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/local"
)

// TableNames overrides the default table file names.
type TableNames struct {
	Nodes            string
	Entities         string
	Relationships    string
	TextUnits        string
	CommunityReports string
	Covariates       string
}

// DefaultTableNames are the fixed file names the on-disk layout documents.
func DefaultTableNames() TableNames {
	return TableNames{
		Nodes:            "nodes.parquet",
		Entities:         "entities.parquet",
		Relationships:    "relationships.parquet",
		TextUnits:        "text_units.parquet",
		CommunityReports: "community_reports.parquet",
		Covariates:       "covariates.parquet",
	}
}

// Loader reads graph artifacts from a directory.
type Loader struct {
	Directory string
	Tables    TableNames
}

// New returns a Loader for dir using the default table names.
func New(dir string) *Loader {
	return &Loader{Directory: dir, Tables: DefaultTableNames()}
}

// Artifacts is the projected, in-memory graph loaded from disk.
type Artifacts struct {
	Entities         []types.Entity
	Relationships    []types.Relationship
	TextUnits        []types.TextUnit
	CommunityReports []types.CommunityReport
	Covariates       map[string][]types.Covariate
}

// Load reads and projects the six tables, applying the community-level
// cutoff and the entity/community-report join rules from the design.
func (l *Loader) Load(ctx context.Context, communityLevel int) (*Artifacts, error) {
	if _, err := os.Stat(l.Directory); err != nil {
		return nil, ierrors.Wrap(ierrors.ErrDirectoryNotFound, err)
	}

	nodes, err := readTable[nodeRow](l.path(l.Tables.Nodes))
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("nodes: %w", err))
	}
	entityRows, err := readTable[entityRow](l.path(l.Tables.Entities))
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("entities: %w", err))
	}
	relRows, err := readTable[relationshipRow](l.path(l.Tables.Relationships))
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("relationships: %w", err))
	}
	textUnitRows, err := readTable[textUnitRow](l.path(l.Tables.TextUnits))
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("text_units: %w", err))
	}
	reportRows, err := readTable[communityReportRow](l.path(l.Tables.CommunityReports))
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("community_reports: %w", err))
	}
	var covRows []covariateRow
	if l.Tables.Covariates != "" {
		if _, statErr := os.Stat(l.path(l.Tables.Covariates)); statErr == nil {
			covRows, err = readTable[covariateRow](l.path(l.Tables.Covariates))
			if err != nil {
				return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("covariates: %w", err))
			}
		}
	}

	nodesByTitle := make(map[string]nodeRow, len(nodes))
	for _, n := range nodes {
		nodesByTitle[n.Title] = n
	}

	entities := make([]types.Entity, 0, len(entityRows))
	for _, e := range entityRows {
		node, ok := nodesByTitle[e.Title]
		if ok && node.Level > communityLevel {
			continue
		}
		rank := 0
		if e.Rank != nil {
			rank = *e.Rank
		}
		community := -1
		if ok && node.Community != nil {
			community = *node.Community
		}
		communityIDs := dedupeKeepHighestRank([]int{community})
		entities = append(entities, types.Entity{
			ID:                   e.ID,
			Title:                e.Title,
			Type:                 e.Type,
			Description:          e.Description,
			Rank:                 rank,
			CommunityIDs:         communityIDs,
			TextUnitIDs:          e.TextUnitIDs,
			DescriptionEmbedding: e.DescriptionEmbedding,
			GraphEmbedding:       e.GraphEmbedding,
			Attributes:           map[string]any{},
		})
	}

	rankByTitle := make(map[string]int, len(entities))
	for _, e := range entities {
		rankByTitle[e.Title] = e.Rank
	}

	relationships := make([]types.Relationship, 0, len(relRows))
	for i, r := range relRows {
		weight := 1.0
		if r.Weight != nil {
			weight = *r.Weight
		}
		combined := rankByTitle[r.Source] + rankByTitle[r.Target]
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("rel-%d", i)
		}
		relationships = append(relationships, types.Relationship{
			ID:             id,
			Source:         r.Source,
			Target:         r.Target,
			Weight:         weight,
			Description:    r.Description,
			Attributes:     map[string]any{},
			CombinedDegree: combined,
		})
	}

	textUnits := make([]types.TextUnit, 0, len(textUnitRows))
	for _, t := range textUnitRows {
		textUnits = append(textUnits, types.TextUnit{
			ID:              t.ID,
			Text:            t.Text,
			NTokens:         t.NTokens,
			EntityIDs:       t.EntityIDs,
			RelationshipIDs: t.RelationshipIDs,
			Attributes:      map[string]any{},
		})
	}

	referencedCommunities := map[int]struct{}{}
	for _, e := range entities {
		for _, cid := range e.CommunityIDs {
			referencedCommunities[cid] = struct{}{}
		}
	}
	reports := make([]types.CommunityReport, 0, len(reportRows))
	for _, r := range reportRows {
		if r.Level > communityLevel {
			continue
		}
		if _, ok := referencedCommunities[r.CommunityID]; !ok {
			continue
		}
		reports = append(reports, types.CommunityReport{
			ID:          r.ID,
			CommunityID: r.CommunityID,
			Title:       r.Title,
			Summary:     r.Summary,
			FullContent: r.FullContent,
			Rank:        r.Rank,
			Attributes:  map[string]any{},
		})
	}

	covariates := map[string][]types.Covariate{}
	for _, c := range covRows {
		subjectType := "entity"
		if c.SubjectType != nil {
			subjectType = *c.SubjectType
		}
		covType := "claim"
		if c.CovariateType != nil {
			covType = *c.CovariateType
		}
		covariates[covType] = append(covariates[covType], types.Covariate{
			ID:            c.ID,
			SubjectID:     c.SubjectID,
			SubjectType:   subjectType,
			CovariateType: covType,
			TextUnitIDs:   c.TextUnitIDs,
			Attributes:    map[string]any{},
		})
	}

	return &Artifacts{
		Entities:         entities,
		Relationships:    relationships,
		TextUnits:        textUnits,
		CommunityReports: reports,
		Covariates:       covariates,
	}, nil
}

// LocalLoadOptions configures ToLocalContextBuilder.
type LocalLoadOptions struct {
	CommunityLevel     int // defaults to 2
	VectorStore        vectorstore.Store
	Embedder           embedding.Embedder
}

// ToLocalContextBuilder loads artifacts at the (default 2) community level,
// populates the vector store from entity description embeddings, and
// returns a ready Local Context Builder. This is the Loader's one-way
// factory method: the builder never references the loader back.
func (l *Loader) ToLocalContextBuilder(ctx context.Context, opts LocalLoadOptions) (*localctx.Builder, error) {
	level := opts.CommunityLevel
	if level == 0 {
		level = 2
	}
	artifacts, err := l.Load(ctx, level)
	if err != nil {
		return nil, err
	}

	store := opts.VectorStore
	if store == nil {
		store = vectorstore.NewMemStore("entity_description_embedding")
	}
	docs := make([]vectorstore.Document, 0, len(artifacts.Entities))
	for _, e := range artifacts.Entities {
		if len(e.DescriptionEmbedding) == 0 {
			continue
		}
		docs = append(docs, vectorstore.Document{
			ID:         e.ID,
			Text:       e.Description,
			Vector:     e.DescriptionEmbedding,
			Attributes: map[string]any{"title": e.Title},
		})
	}
	if err := store.Load(ctx, docs, true); err != nil {
		return nil, ierrors.Wrap(ierrors.ErrSchemaMismatch, fmt.Errorf("load embeddings: %w", err))
	}

	return localctx.NewBuilder(
		artifacts.Entities,
		artifacts.Relationships,
		artifacts.TextUnits,
		artifacts.CommunityReports,
		artifacts.Covariates,
		store,
		opts.Embedder,
	), nil
}

func (l *Loader) path(name string) string { return filepath.Join(l.Directory, name) }

func readTable[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rows, err := parquet.Read[T](f, stat.Size())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// dedupeKeepHighestRank normalizes community ids: it drops repeated values
// and returns the distinct ids in ascending order.
func dedupeKeepHighestRank(ids []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
