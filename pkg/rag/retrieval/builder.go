package retrieval

import (
	"context"
	"strings"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/vectorindex"
)

const (
	DefaultSeparator        = "\n\n---\n\n"
	DefaultNoContextMessage = "No relevant information found in the document."
	DefaultLimit            = 5
	DefaultScoreThreshold   = 0.5
	DefaultMaxContextChars  = 6000
)

type Config struct {
	Limit            int
	ScoreThreshold   float32
	MaxContextChars  int
	Separator        string
	NoContextMessage string
}

// Searcher is the part of vectorindex.Manager retrieval needs.
type Searcher interface {
	CollectionName(documentID string) string
	Search(ctx context.Context, name string, vector []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error)
}

type Source struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
}

type Result struct {
	Context string
	Sources []Source
}

// Empty reports whether no passage cleared the threshold.
func (r *Result) Empty() bool {
	return len(r.Sources) == 0
}

type Builder struct {
	searcher Searcher
	cfg      Config
	logger   logger.ILogger
}

func NewBuilder(searcher Searcher, cfg Config, logger logger.ILogger) *Builder {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	if cfg.NoContextMessage == "" {
		cfg.NoContextMessage = DefaultNoContextMessage
	}
	return &Builder{
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// BuildContext searches the document's collection and joins the passages that
// clear the threshold. No hits is a valid outcome and yields the sentinel context.
func (b *Builder) BuildContext(ctx context.Context, documentID string, queryVector []float32) (*Result, error) {
	collection := b.searcher.CollectionName(documentID)

	matches, err := b.searcher.Search(ctx, collection, queryVector, vectorindex.SearchOptions{
		Limit:          b.cfg.Limit,
		ScoreThreshold: b.cfg.ScoreThreshold,
		WithPayload:    true,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(matches))
	passages := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Score < b.cfg.ScoreThreshold || match.Payload == nil {
			continue
		}
		text := strings.TrimSpace(match.Payload.Text)
		if text == "" {
			continue
		}
		sources = append(sources, Source{
			ChunkIndex: match.Payload.ChunkIndex,
			Score:      match.Score,
			Title:      match.Payload.Title,
			Text:       text,
		})
		passages = append(passages, text)
	}

	b.logger.Debug("Retrieval", "Context assembled", map[string]interface{}{
		"collection": collection,
		"hits":       len(matches),
		"kept":       len(sources),
	})

	if len(sources) == 0 {
		return &Result{Context: b.cfg.NoContextMessage, Sources: []Source{}}, nil
	}

	return &Result{
		Context: Truncate(strings.Join(passages, b.cfg.Separator), b.cfg.MaxContextChars),
		Sources: sources,
	}, nil
}

// Truncate cuts s to at most max characters, possibly mid-passage.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
