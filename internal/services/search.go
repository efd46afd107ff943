package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/docvault-api/internal/llm"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/BerylCAtieno/docvault-api/internal/vectorstore"
)

const defaultTopK = 5

// VectorSearcher runs similarity search over stored chunks.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]vectorstore.Match, error)
}

// SearchService answers questions over vectorized documents. With no LLM it
// returns plain similarity results.
type SearchService struct {
	repo     repository.Repository
	searcher VectorSearcher
	llm      llm.Gateway
	logger   *utils.Logger
}

func NewSearchService(repo repository.Repository, searcher VectorSearcher, gateway llm.Gateway, logger *utils.Logger) *SearchService {
	return &SearchService{
		repo:     repo,
		searcher: searcher,
		llm:      gateway,
		logger:   logger.With("component", "search"),
	}
}

func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, utils.NewBadRequestError("Query is required")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	optimized := s.optimizeQuery(ctx, query)

	matches, err := s.searcher.Search(ctx, optimized, topK*2)
	if err != nil {
		s.logger.Error("Vector search failed", "error", err)
		return nil, utils.WrapInternalError("Failed to search documents", err)
	}

	matches = s.rerank(ctx, query, matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}

	hits := make([]models.SearchHit, 0, len(matches))
	names := make(map[string]string)
	for _, m := range matches {
		name, ok := names[m.DocumentID]
		if !ok {
			if node, err := s.repo.GetByID(ctx, m.DocumentID); err == nil && node != nil {
				name = node.Name
			}
			names[m.DocumentID] = name
		}

		// Deleted documents may still have vectors until cleanup succeeds.
		if name == "" {
			continue
		}

		hits = append(hits, models.SearchHit{
			DocumentID:   m.DocumentID,
			DocumentName: name,
			ChunkID:      m.ChunkID,
			Text:         m.Text,
			Score:        m.Score,
		})
	}

	return &models.SearchResponse{
		Query:          query,
		OptimizedQuery: optimized,
		Hits:           hits,
		Answer:         s.answer(ctx, query, hits),
	}, nil
}

func (s *SearchService) optimizeQuery(ctx context.Context, query string) string {
	if s.llm == nil {
		return query
	}

	out, err := s.llm.Generate(ctx,
		"Rewrite the user's question into a short search query for a document store. Keep the original language. Reply with the query only.",
		query,
		llm.Params{Temperature: 0, MaxTokens: 100},
	)
	if err != nil {
		s.logger.Warn("Query optimization failed, using the original query", "error", err)
		return query
	}

	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return query
	}
	return out
}

// rerank asks the LLM to order candidates by relevance. Indices it omits keep
// their similarity order after the ranked ones.
func (s *SearchService) rerank(ctx context.Context, query string, matches []vectorstore.Match) []vectorstore.Match {
	if s.llm == nil || len(matches) < 2 {
		return matches
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, m := range matches {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncateRunes(m.Text, 400))
	}

	out, err := s.llm.Generate(ctx,
		`Rank the passages by how well they answer the question. Reply with JSON only: {"order": [indices, most relevant first]}`,
		b.String(),
		llm.Params{Temperature: 0, MaxTokens: 200, JSON: true},
	)
	if err != nil {
		s.logger.Warn("Rerank failed, keeping similarity order", "error", err)
		return matches
	}

	var ranking struct {
		Order []int `json:"order"`
	}
	if err := llm.ParseStructured(out, &ranking); err != nil || len(ranking.Order) == 0 {
		s.logger.Warn("Rerank reply was not usable, keeping similarity order")
		return matches
	}

	return applyOrder(matches, ranking.Order)
}

func (s *SearchService) answer(ctx context.Context, query string, hits []models.SearchHit) string {
	if s.llm == nil || len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] (%s) %s\n\n", i+1, h.DocumentName, h.Text)
	}

	out, err := s.llm.Generate(ctx,
		"Answer the question using only the numbered excerpts. Cite excerpts as [n]. If they do not contain the answer, say so.",
		fmt.Sprintf("Excerpts:\n%s\nQuestion: %s", b.String(), query),
		llm.Params{Temperature: 0.2, MaxTokens: 800},
	)
	if err != nil {
		s.logger.Warn("Answer generation failed", "error", err)
		return ""
	}

	return strings.TrimSpace(out)
}

func applyOrder(matches []vectorstore.Match, order []int) []vectorstore.Match {
	used := make([]bool, len(matches))
	out := make([]vectorstore.Match, 0, len(matches))

	for _, idx := range order {
		if idx < 0 || idx >= len(matches) || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, matches[idx])
	}
	for i, m := range matches {
		if !used[i] {
			out = append(out, m)
		}
	}

	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
