// Package local implements the Local Context Builder (C5): token-budgeted
// assembly of community, entity/relationship/covariate, and text-unit
// sections tied to a query, grounded closely on the source's
// LocalContextBuilder (the hardest single component per the design).
package local

import (
	"context"
	"strings"

	"github.com/graphrag-query/go-graphrag-query/internal/conversation"
	"github.com/graphrag-query/go-graphrag-query/internal/models/embedding"
	"github.com/graphrag-query/go-graphrag-query/internal/tokenizer"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
	"github.com/graphrag-query/go-graphrag-query/internal/vectorstore"
)

// Options configures BuildContext, covering every policy knob named in the
// algorithm's steps 1-6.
type Options struct {
	IncludeEntityNames               []string
	ExcludeEntityNames               []string
	ConversationHistoryMaxTurns      int
	ConversationHistoryUserTurnsOnly bool
	MaxTokens                        int
	TextUnitProp                     float64
	CommunityProp                    float64
	TopKMappedEntities               int
	TopKRelationships                int
	OversampleScaler                 int
	IncludeCommunityRank             bool
	IncludeEntityRank                bool
	RankDescription                  string
	IncludeRelationshipWeight        bool
	RelationshipRankingAttribute     string
	UseCommunitySummary              bool
	MinCommunityRank                 int
	CommunityContextName             string
	ColumnDelimiter                  string
	EmbeddingVectorStoreKey          EmbeddingVectorStoreKey
	ReturnCandidateContext           bool
}

// DefaultOptions mirrors the source's defaults.
func DefaultOptions() Options {
	return Options{
		ConversationHistoryMaxTurns:      5,
		ConversationHistoryUserTurnsOnly: true,
		MaxTokens:                        8000,
		TextUnitProp:                     0.5,
		CommunityProp:                    0.25,
		TopKMappedEntities:               10,
		TopKRelationships:                10,
		OversampleScaler:                 2,
		RankDescription:                  "number of relationships",
		RelationshipRankingAttribute:     "rank",
		CommunityContextName:             "Reports",
		ColumnDelimiter:                  "|",
		EmbeddingVectorStoreKey:          EmbeddingKeyID,
	}
}

// Builder holds read-only views into the loaded graph artifacts, keyed for
// O(1) lookup, plus the vector store and embedder used for entity mapping.
type Builder struct {
	entities         map[string]types.Entity
	entitiesByTitle  map[string][]types.Entity
	textUnits        map[string]types.TextUnit
	communityReports map[int]types.CommunityReport
	relationships    []types.Relationship
	covariates       map[string][]types.Covariate // keyed by covariate type

	vectorStore vectorstore.Store
	embedder    embedding.Embedder
}

// NewBuilder indexes the given artifacts for repeated querying.
func NewBuilder(
	entities []types.Entity,
	relationships []types.Relationship,
	textUnits []types.TextUnit,
	communityReports []types.CommunityReport,
	covariates map[string][]types.Covariate,
	store vectorstore.Store,
	embedder embedding.Embedder,
) *Builder {
	b := &Builder{
		entities:         make(map[string]types.Entity, len(entities)),
		entitiesByTitle:  make(map[string][]types.Entity),
		textUnits:        make(map[string]types.TextUnit, len(textUnits)),
		communityReports: make(map[int]types.CommunityReport, len(communityReports)),
		relationships:    relationships,
		covariates:       covariates,
		vectorStore:      store,
		embedder:         embedder,
	}
	for _, e := range entities {
		b.entities[e.ID] = e
		b.entitiesByTitle[e.Title] = append(b.entitiesByTitle[e.Title], e)
	}
	for _, t := range textUnits {
		b.textUnits[t.ID] = t
	}
	for _, c := range communityReports {
		b.communityReports[c.CommunityID] = c
	}
	return b
}

// FilterByEntityKeys returns the store's id filter for the given entity ids.
// The filter is a per-call value that holds no store state; the entity
// search inside BuildContext passes no filter.
func (b *Builder) FilterByEntityKeys(ids []string) *vectorstore.IDFilter {
	return b.vectorStore.FilterByID(ids)
}

// BuildContext runs the full 7-step algorithm and returns the assembled
// prompt text plus the per-section tabular views.
func (b *Builder) BuildContext(
	ctx context.Context,
	query string,
	history *conversation.History,
	opts Options,
) (string, map[string]types.TableView, error) {
	if opts.CommunityProp+opts.TextUnitProp > 1 {
		return "", nil, errBudgetExceedsOne
	}

	// Step 1: query augmentation for similarity search only.
	augmented := query
	if history != nil && history.Len() > 0 {
		turns := history.GetUserTurns(opts.ConversationHistoryMaxTurns)
		if len(turns) > 0 {
			augmented = query + "\n" + strings.Join(turns, "\n")
		}
	}

	// Step 2: entity mapping.
	selected, err := b.mapQueryToEntities(
		ctx, augmented,
		opts.IncludeEntityNames, opts.ExcludeEntityNames,
		opts.EmbeddingVectorStoreKey,
		opts.TopKMappedEntities, oversampleOrDefault(opts.OversampleScaler),
	)
	if err != nil {
		return "", nil, err
	}

	// Step 3: budget split (integer floor, matching the source exactly). The
	// local share is computed as M - M*c - M*t rather than M*(1-c-t), whose
	// float rounding would floor e.g. 1000*(1-0.3-0.2) to 499.
	maxTokens := opts.MaxTokens
	communityTokens := maxInt(int(float64(maxTokens)*opts.CommunityProp), 0)
	textUnitTokens := maxInt(int(float64(maxTokens)*opts.TextUnitProp), 0)
	localTokens := maxInt(int(float64(maxTokens)-float64(maxTokens)*opts.CommunityProp-float64(maxTokens)*opts.TextUnitProp), 0)

	var sections []string
	data := map[string]types.TableView{}

	// Step 4: community section.
	communityText, communityView := b.buildCommunityContext(selected, communityTokens, opts)
	if strings.TrimSpace(communityText) != "" {
		sections = append(sections, communityText)
	}
	data[strings.ToLower(opts.CommunityContextName)] = communityView

	// Step 5: local (entity/relationship/covariate) section.
	localText, localViews := b.buildLocalSection(selected, localTokens, opts)
	if strings.TrimSpace(localText) != "" {
		sections = append(sections, localText)
	}
	for k, v := range localViews {
		data[k] = v
	}

	// Step 6: text-unit section.
	textUnitText, textUnitView := b.buildTextUnitContext(selected, textUnitTokens, opts)
	if strings.TrimSpace(textUnitText) != "" {
		sections = append(sections, textUnitText)
	}
	data["sources"] = textUnitView

	return strings.Join(sections, "\n\n"), data, nil
}

func oversampleOrDefault(n int) int {
	if n <= 0 {
		return 2
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func numTokens(s string) int { return tokenizer.NumTokens(s) }

var errBudgetExceedsOne = errBudget("community_prop + text_unit_prop must not exceed 1")

type errBudget string

func (e errBudget) Error() string { return string(e) }
