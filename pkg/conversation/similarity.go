package conversation

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// similarityThreshold is the minimum word-level Jaccard similarity for an
// exchange to count as related to a query.
const similarityThreshold = 0.3

// ScoredExchange pairs an exchange with its similarity to a query.
type ScoredExchange struct {
	Exchange
	Similarity float64 `json:"similarity"`
}

// SimilarExchanges finds past exchanges whose questions resemble query,
// most similar first. Exchanges pass a word-level Jaccard gate and are
// then ranked by a blend of cosine 2-gram and Jaccard similarity, so
// exact keyword overlap and near-miss phrasings both rank well.
func (s *Store) SimilarExchanges(ctx context.Context, tenantID, conversationID, query string, limit int) ([]ScoredExchange, error) {
	history, err := s.load(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var scored []ScoredExchange
	for _, ex := range history {
		question := strings.ToLower(ex.Question)
		jaccard := float64(edlib.JaccardSimilarity(q, question, 0))
		if jaccard <= similarityThreshold {
			continue
		}
		cosine := float64(edlib.CosineSimilarity(q, question, 2))
		scored = append(scored, ScoredExchange{
			Exchange:   ex,
			Similarity: 0.7*cosine + 0.3*jaccard,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
