// Package intent classifies free-text queries into a QueryIntent.
//
// Classification is delegated to an llm.Provider with a constrained JSON
// instruction. Analyze never fails: on any provider or parse failure it
// degrades to a "find" intent whose keywords are the whitespace-separated
// query terms.
package intent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/promptkb/internal/llm"
	"github.com/dshills/promptkb/pkg/types"
)

const (
	// DefaultTimeout bounds a single classification call
	DefaultTimeout = 10 * time.Second

	// maxQueryRunes bounds the query text sent upstream
	maxQueryRunes = 500
)

const systemPrompt = `You classify search queries for a prompt-engineering knowledge base.
Return ONLY a JSON object with these fields:
  "action":    one of "find", "summarize", "compare", "explain"
  "keywords":  array of the important search terms, in the query's language
  "entity":    the main named entity, or ""
  "timeframe": one of "today", "this_week", "this_month", "this_year", or ""
  "file_type": one of "document", "spreadsheet", "presentation", "image", "video", "audio", or ""

Example:
Input: summarize last week's sales spreadsheet for Acme
Output: {"action":"summarize","keywords":["sales","spreadsheet","Acme"],"entity":"Acme","timeframe":"this_week","file_type":"spreadsheet"}`

// response is the JSON shape requested from the model
type response struct {
	Action    string   `json:"action"`
	Keywords  []string `json:"keywords"`
	Entity    string   `json:"entity"`
	Timeframe string   `json:"timeframe"`
	FileType  string   `json:"file_type"`
}

// Analyzer classifies queries using a completion provider
type Analyzer struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTimeout sets the per-call classification timeout
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an Analyzer. A nil provider always yields the fallback.
func NewAnalyzer(provider llm.Provider, opts ...Option) *Analyzer {
	if provider == nil {
		provider = llm.Disabled{}
	}
	a := &Analyzer{
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   slog.Default().With("component", "intent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fallback returns the deterministic intent used when classification fails
func Fallback(query string) types.QueryIntent {
	return types.QueryIntent{
		Action:   types.ActionFind,
		Keywords: strings.Fields(query),
	}
}

// Analyze classifies query. It always returns a usable intent.
func (a *Analyzer) Analyze(ctx context.Context, query string) types.QueryIntent {
	fallback := Fallback(query)
	if strings.TrimSpace(query) == "" {
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.provider.Complete(callCtx, truncate(query, maxQueryRunes), llm.CompletionOpts{
		System:      systemPrompt,
		MaxTokens:   256,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		a.logger.Warn("intent classification failed, using fallback", "err", err)
		return fallback
	}

	parsed, ok := llm.ParseOrDefault(raw, response{}, nil)
	if !ok {
		a.logger.Warn("unparseable intent response, using fallback", "response", truncate(raw, 200))
		return fallback
	}

	return normalise(parsed, query)
}

// normalise drops invalid fields individually rather than the whole answer
func normalise(r response, query string) types.QueryIntent {
	intent := types.QueryIntent{
		Action: types.Action(strings.ToLower(strings.TrimSpace(r.Action))),
		Entity: strings.TrimSpace(r.Entity),
	}
	if !intent.Action.Valid() {
		intent.Action = types.ActionFind
	}

	for _, kw := range r.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			intent.Keywords = append(intent.Keywords, kw)
		}
	}
	if len(intent.Keywords) == 0 {
		intent.Keywords = strings.Fields(query)
	}

	if tf := types.Timeframe(strings.ToLower(strings.TrimSpace(r.Timeframe))); tf.Valid() {
		intent.Timeframe = tf
	}
	if cat := types.FileCategory(strings.ToLower(strings.TrimSpace(r.FileType))); cat.Valid() {
		intent.FileType = cat
	}

	return intent
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
