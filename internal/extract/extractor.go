package extract

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/parser"
)

// Source names the path that produced an Extraction.
type Source string

const (
	SourceLLM    Source = "llm"
	SourceParser Source = "parser"
)

// Completer is the model call. *Client implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor prefers the structured-extraction collaborator and falls back to
// the local parser whenever it is missing or fails.
type Extractor struct {
	llm    Completer
	logger *slog.Logger
}

// NewExtractor creates an Extractor. llm may be nil, in which case every call
// goes to the local parser.
func NewExtractor(llm Completer, logger *slog.Logger) *Extractor {
	return &Extractor{
		llm:    llm,
		logger: logger.With(slog.String("component", "extractor")),
	}
}

// Extract returns the best extraction for text and the path that produced it.
// The only error is a cancelled context; collaborator failures fall back.
func (e *Extractor) Extract(ctx context.Context, text string) (domain.Extraction, Source, error) {
	local := parser.Parse(text)
	if e.llm == nil {
		return local, SourceParser, nil
	}

	content, err := e.llm.Complete(ctx, Prompt(text))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Extraction{}, "", ctxErr
		}
		return e.fallback(ctx, local, err), SourceParser, nil
	}

	cand, err := DecodeResponse(content)
	if err != nil {
		return e.fallback(ctx, local, err), SourceParser, nil
	}

	ext := Normalize(cand, local.TotalStake)
	if len(ext.Bookmakers) == 0 && len(local.Bookmakers) > 0 {
		e.logger.InfoContext(ctx, "structured extraction found no bookmakers, using parser",
			slog.Int("parser_rows", len(local.Bookmakers)),
		)
		return local, SourceParser, nil
	}
	return ext, SourceLLM, nil
}

func (e *Extractor) fallback(ctx context.Context, local domain.Extraction, err error) domain.Extraction {
	e.logger.WarnContext(ctx, "structured extraction failed, using parser",
		slog.String("error", err.Error()),
	)
	local.Warnings = append(local.Warnings, "structured extraction unavailable: "+err.Error())
	return local
}

// Collaborating reports whether a structured-extraction collaborator is set.
func (e *Extractor) Collaborating() bool {
	return e.llm != nil
}
