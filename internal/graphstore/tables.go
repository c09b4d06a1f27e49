package graphstore

// Row shapes mirror the on-disk parquet tables' column names. Fields use
// pointer types where the source column may be absent so the loader can
// coalesce missing values to the documented defaults.

type nodeRow struct {
	Title     string `parquet:"title"`
	Level     int    `parquet:"level"`
	Community *int   `parquet:"community"`
}

type entityRow struct {
	ID                   string    `parquet:"id"`
	Title                string    `parquet:"title"`
	Type                 string    `parquet:"type"`
	Description          string    `parquet:"description"`
	Rank                 *int      `parquet:"rank"`
	TextUnitIDs          []string  `parquet:"text_unit_ids"`
	DescriptionEmbedding []float32 `parquet:"description_embedding"`
	GraphEmbedding       []float32 `parquet:"graph_embedding"`
}

type relationshipRow struct {
	ID          string  `parquet:"id"`
	Source      string  `parquet:"source"`
	Target      string  `parquet:"target"`
	Weight      *float64 `parquet:"weight"`
	Description string  `parquet:"description"`
}

type textUnitRow struct {
	ID              string   `parquet:"id"`
	Text            string   `parquet:"text"`
	NTokens         int      `parquet:"n_tokens"`
	EntityIDs       []string `parquet:"entity_ids"`
	RelationshipIDs []string `parquet:"relationship_ids"`
}

type communityReportRow struct {
	ID          string  `parquet:"id"`
	CommunityID int     `parquet:"community"`
	Level       int     `parquet:"level"`
	Title       string  `parquet:"title"`
	Summary     string  `parquet:"summary"`
	FullContent string  `parquet:"full_content"`
	Rank        float64 `parquet:"rank"`
}

type covariateRow struct {
	ID            string   `parquet:"id"`
	SubjectID     string   `parquet:"subject_id"`
	SubjectType   *string  `parquet:"subject_type"`
	CovariateType *string  `parquet:"type"`
	TextUnitIDs   []string `parquet:"text_unit_ids"`
}
