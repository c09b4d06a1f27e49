// Package global implements the Global Search Engine (C8): a map-reduce
// search over community report batches. The map phase asks one question
// per batch in strict JSON mode and collects scored key points; the reduce
// phase filters, ranks, and packs them into a final answer prompt.
package global

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	globalctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/global"
	"github.com/graphrag-query/go-graphrag-query/internal/conversation"
	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/jsonrepair"
	"github.com/graphrag-query/go-graphrag-query/internal/logger"
	"github.com/graphrag-query/go-graphrag-query/internal/models/chat"
	"github.com/graphrag-query/go-graphrag-query/internal/template"
	"github.com/graphrag-query/go-graphrag-query/internal/tokenizer"
	"github.com/graphrag-query/go-graphrag-query/internal/types"

	"golang.org/x/sync/semaphore"
)

const NoDataAnswer = "I am sorry but I am unable to answer this question given the provided data."

const DefaultMapSysPrompt = `---Role---

You are a helpful assistant responding to questions about data in a table provided below.

---Goal---

Generate a response consisting of a list of key points that responds to the user's question, summarizing all relevant information in the input data table.

Respond in JSON format as a list of objects, each with "answer" (a key point, as a string) and "score" (an integer 0-100 indicating how relevant this point is to answering the question).

---Data table---

{context_data}
`

const DefaultReducePrompt = `---Role---

You are a helpful assistant responding to questions about a dataset by synthesizing perspectives from multiple analysts.

---Goal---

Generate a response that responds to the user's question, summarizing all key points from the analysts' reports below, appropriate for the response length and format.

---Analyst Reports---

{report_data}
`

// Engine is the Global Search Engine.
type Engine struct {
	ChatModel       chat.Model
	ContextBuilder  *globalctx.Builder
	MapSysPrompt    string
	ReduceSysPrompt string
	MaxDataTokens   int
	Concurrency     int64 // bound on concurrent map-phase chat calls; 0 -> 16
	Logger          logger.Logger
}

// New returns an Engine with default prompts and concurrency.
func New(chatModel chat.Model, builder *globalctx.Builder) *Engine {
	return &Engine{
		ChatModel:       chatModel,
		ContextBuilder:  builder,
		MapSysPrompt:    DefaultMapSysPrompt,
		ReduceSysPrompt: DefaultReducePrompt,
		MaxDataTokens:   8000,
		Concurrency:     16,
	}
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	ContextOptions        globalctx.Options
	ChatOptions           chat.Options
	AllowGeneralKnowledge bool
	MinScore              float64 // key points scoring <= this are dropped; default 0
}

// Search runs the map-reduce algorithm and returns a verbose result. When
// no map-phase point survives reduce filtering and general knowledge isn't
// allowed, this short-circuits with NoDataAnswer and never issues the
// reduce chat call — LLMCalls equals the batch count in that case.
func (e *Engine) Search(
	ctx context.Context,
	query string,
	history *conversation.History,
	opts SearchOptions,
) (*types.SearchResultVerbose, error) {
	created := time.Now()

	batches, contextData, err := e.buildBatches(history, opts)
	if err != nil {
		return nil, err
	}

	points, calls, err := e.mapPhase(ctx, query, batches, opts)
	if err != nil {
		return nil, err
	}

	red := e.reduce(points, opts)
	if red.noData {
		return &types.SearchResultVerbose{
			SearchResult: types.SearchResult{
				Model:        e.ChatModel.ModelName(),
				FinishReason: "stop",
				Content:      NoDataAnswer,
			},
			ContextData:    contextData,
			CompletionTime: time.Since(created).Seconds(),
			LLMCalls:       calls,
			MapResult:      points,
		}, nil
	}

	resp, err := e.ChatModel.Chat(ctx, []chat.Message{
		{Role: "system", Content: red.systemPrompt},
		{Role: "user", Content: query},
	}, opts.ChatOptions)
	calls++
	if err != nil {
		return nil, err
	}

	result := &types.SearchResultVerbose{
		SearchResult: types.SearchResult{
			Model:        e.ChatModel.ModelName(),
			FinishReason: resp.FinishReason,
			Content:      resp.Content,
		},
		ContextData:       contextData,
		CompletionTime:    time.Since(created).Seconds(),
		LLMCalls:          calls,
		MapResult:         points,
		ReduceContextText: red.reportData,
	}
	if resp.Usage != nil {
		result.Usage = &types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// SearchStream runs the same map-reduce algorithm as Search but streams the
// reduce call, matching the local engine's streaming contract: context/
// timing/usage fields populate only on the terminal chunk. The no-data
// short-circuit still applies and is delivered as a single terminal chunk
// with no reduce chat call.
func (e *Engine) SearchStream(
	ctx context.Context,
	query string,
	history *conversation.History,
	opts SearchOptions,
) (<-chan types.SearchResultChunkVerbose, error) {
	created := time.Now()

	batches, contextData, err := e.buildBatches(history, opts)
	if err != nil {
		return nil, err
	}

	points, calls, err := e.mapPhase(ctx, query, batches, opts)
	if err != nil {
		return nil, err
	}

	red := e.reduce(points, opts)
	if red.noData {
		out := make(chan types.SearchResultChunkVerbose, 1)
		ct := time.Since(created).Seconds()
		n := calls
		out <- types.SearchResultChunkVerbose{
			SearchResultChunk: types.SearchResultChunk{
				Model:        e.ChatModel.ModelName(),
				FinishReason: "stop",
				Delta:        NoDataAnswer,
			},
			ContextData:    contextData,
			CompletionTime: &ct,
			LLMCalls:       &n,
			MapResult:      points,
		}
		close(out)
		return out, nil
	}

	upstream, err := e.ChatModel.ChatStream(ctx, []chat.Message{
		{Role: "system", Content: red.systemPrompt},
		{Role: "user", Content: query},
	}, opts.ChatOptions)
	if err != nil {
		return nil, err
	}
	calls++

	out := make(chan types.SearchResultChunkVerbose)
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Err != nil {
				return
			}
			result := types.SearchResultChunkVerbose{
				SearchResultChunk: types.SearchResultChunk{
					Model:        e.ChatModel.ModelName(),
					FinishReason: chunk.FinishReason,
					Delta:        chunk.Delta,
				},
			}
			if chunk.FinishReason != "" {
				cd := time.Since(created).Seconds()
				n := calls
				rc := red.reportData
				result.ContextData = contextData
				result.CompletionTime = &cd
				result.LLMCalls = &n
				result.MapResult = points
				result.ReduceContextText = &rc
				if chunk.Usage != nil {
					result.Usage = &types.Usage{
						PromptTokens:     chunk.Usage.PromptTokens,
						CompletionTokens: chunk.Usage.CompletionTokens,
						TotalTokens:      chunk.Usage.TotalTokens,
					}
				}
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// buildBatches runs the context builder and normalizes its single-batch/
// multi-batch result into a plain slice.
func (e *Engine) buildBatches(history *conversation.History, opts SearchOptions) ([]string, map[string]types.TableView, error) {
	ctxResult, contextData, err := e.ContextBuilder.BuildContext(history, opts.ContextOptions)
	if err != nil {
		return nil, nil, err
	}
	batches := ctxResult.Batches
	if !ctxResult.IsBatched {
		batches = []string{ctxResult.Text}
	}
	return batches, contextData, nil
}

// mapPhase asks one map question per batch, bounded by e.Concurrency
// concurrent upstream calls. A batch that fails to produce a usable answer
// contributes an empty key point rather than aborting the whole search.
func (e *Engine) mapPhase(ctx context.Context, query string, batches []string, opts SearchOptions) ([]types.KeyPoint, int, error) {
	weight := e.Concurrency
	if weight <= 0 {
		weight = 16
	}
	sem := semaphore.NewWeighted(weight)

	type mapOutcome struct {
		points []types.KeyPoint
	}
	outcomes := make([]mapOutcome, len(batches))
	calls := 0

	type job struct {
		idx   int
		batch string
	}
	jobs := make(chan job)
	results := make(chan int, len(batches))

	worker := func() {
		for j := range jobs {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- j.idx
				continue
			}
			pts := e.mapOne(ctx, query, j.batch, j.idx, opts)
			sem.Release(1)
			outcomes[j.idx] = mapOutcome{points: pts}
			results <- j.idx
		}
	}

	numWorkers := int(weight)
	if numWorkers > len(batches) {
		numWorkers = len(batches)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	for w := 0; w < numWorkers; w++ {
		go worker()
	}
	go func() {
		for i, b := range batches {
			jobs <- job{idx: i, batch: b}
		}
		close(jobs)
	}()
	for range batches {
		<-results
	}

	var all []types.KeyPoint
	for _, o := range outcomes {
		all = append(all, o.points...)
		calls++
	}
	return all, calls, nil
}

func (e *Engine) mapOne(ctx context.Context, query, batch string, analyst int, opts SearchOptions) []types.KeyPoint {
	prompt := template.Render(e.MapSysPrompt, map[string]string{"context_data": batch})
	chatOpts := opts.ChatOptions
	chatOpts.JSONMode = true
	resp, err := e.ChatModel.Chat(ctx, []chat.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: query},
	}, chatOpts)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warnf("global search map phase batch %d failed: %v", analyst, ierrors.Wrap(ierrors.ErrUpstreamChat, err))
		}
		return []types.KeyPoint{{Analyst: analyst, Answer: "", Score: 0}}
	}
	return parseMapResponse(resp.Content, analyst)
}

// parseMapResponse decodes the map phase's JSON output into key points
// (each point's text is read from "answer", or from "description" when
// "answer" is empty), attempting jsonrepair.Repair once on a decode failure
// — and unwrapping a repaired {"points": [...]} envelope — before giving up
// and returning the default empty point.
func parseMapResponse(content string, analyst int) []types.KeyPoint {
	raw := extractPointsArray(content)
	var rows []struct {
		Answer      string  `json:"answer"`
		Description string  `json:"description"`
		Score       float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		repaired := extractPointsArray(jsonrepair.Repair(raw))
		if err2 := json.Unmarshal([]byte(repaired), &rows); err2 != nil {
			return []types.KeyPoint{{Analyst: analyst, Answer: "", Score: 0}}
		}
	}
	if len(rows) == 0 {
		return []types.KeyPoint{{Analyst: analyst, Answer: "", Score: 0}}
	}
	points := make([]types.KeyPoint, 0, len(rows))
	for _, r := range rows {
		answer := r.Answer
		if answer == "" {
			answer = r.Description
		}
		points = append(points, types.KeyPoint{Analyst: analyst, Answer: answer, Score: r.Score})
	}
	return points
}

// extractPointsArray unwraps a {"points": [...]} envelope if present,
// otherwise assumes content is already a top-level JSON array.
func extractPointsArray(content string) string {
	content = strings.TrimSpace(content)
	var envelope struct {
		Points json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err == nil && len(envelope.Points) > 0 {
		return string(envelope.Points)
	}
	return content
}

// reduceOutput is either a no-data short-circuit (noData true, nothing else
// populated) or a reduce prompt ready for the chat/chat-stream call.
type reduceOutput struct {
	noData       bool
	systemPrompt string
	reportData   string
}

// reduce filters non-positive/zero-score points, sorts by score descending,
// and greedily packs "----Analyst i----" blocks into MaxDataTokens. If
// nothing survives filtering and general knowledge isn't allowed, it
// reports noData so the caller can skip the reduce chat call entirely.
func (e *Engine) reduce(points []types.KeyPoint, opts SearchOptions) reduceOutput {
	var filtered []types.KeyPoint
	for _, p := range points {
		if p.Answer == "" {
			continue
		}
		if p.Score <= opts.MinScore {
			continue
		}
		filtered = append(filtered, p)
	}

	if len(filtered) == 0 && !opts.AllowGeneralKnowledge {
		return reduceOutput{noData: true}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	maxTokens := e.MaxDataTokens
	if maxTokens <= 0 {
		maxTokens = 8000
	}

	var b strings.Builder
	for _, p := range filtered {
		block := fmt.Sprintf("----Analyst %d----\nImportance score: %v\n%s\n", p.Analyst+1, p.Score, p.Answer)
		candidate := b.String() + block
		if tokenizer.NumTokens(candidate) > maxTokens && b.Len() > 0 {
			if e.Logger != nil {
				e.Logger.Warnf("global search reduce context truncated to fit %d tokens", maxTokens)
			}
			break
		}
		b.WriteString(block)
	}
	reportData := b.String()
	prompt := template.Render(e.ReduceSysPrompt, map[string]string{"report_data": reportData})
	return reduceOutput{systemPrompt: prompt, reportData: reportData}
}
