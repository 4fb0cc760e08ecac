// Package retrieval implements the hybrid retrieval pipeline: dense and
// sparse candidate lookup, weighted score fusion, and cross-encoder-style
// reranking, composed behind a single Retrieve contract.
package retrieval

import (
	"sort"

	"github.com/koopa0/ragent/internal/index"
)

// fusedCandidate carries a document through fusion with the bookkeeping
// needed for deterministic tie-breaking.
type fusedCandidate struct {
	doc      index.Document
	score    float64
	bestRank int // best (lowest) original rank across the input lists
}

// Fuse merges two ranked candidate lists into one deduplicated list using
// weighted combination of min-max normalized scores.
//
// Documents appearing in both lists accumulate both weighted scores;
// documents in one list keep their single weighted score. Ordering is by
// fused score descending, with ties broken by best original rank and then
// document ID, so the result is fully deterministic and, for equal weights,
// independent of which list is passed first (up to tie order).
func Fuse(dense, sparse []index.ScoredDocument, denseWeight, sparseWeight float64) []index.ScoredDocument {
	byID := make(map[string]*fusedCandidate, len(dense)+len(sparse))

	accumulate := func(list []index.ScoredDocument, weight float64) {
		for rank, sd := range list {
			contribution := weight * normalized(list, rank)
			if cand, ok := byID[sd.Document.ID]; ok {
				cand.score += contribution
				if rank < cand.bestRank {
					cand.bestRank = rank
				}
				continue
			}
			byID[sd.Document.ID] = &fusedCandidate{
				doc:      sd.Document,
				score:    contribution,
				bestRank: rank,
			}
		}
	}
	accumulate(dense, denseWeight)
	accumulate(sparse, sparseWeight)

	candidates := make([]*fusedCandidate, 0, len(byID))
	for _, cand := range byID {
		candidates = append(candidates, cand)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].bestRank != candidates[j].bestRank {
			return candidates[i].bestRank < candidates[j].bestRank
		}
		return candidates[i].doc.ID < candidates[j].doc.ID
	})

	fused := make([]index.ScoredDocument, len(candidates))
	for i, cand := range candidates {
		fused[i] = index.ScoredDocument{Document: cand.doc, Score: cand.score}
	}
	return fused
}

// normalized returns the min-max normalized score of list[rank] in [0, 1].
// A list whose scores are all equal normalizes to 1 for every entry, so a
// single-hit list still contributes its full weight.
func normalized(list []index.ScoredDocument, rank int) float64 {
	minScore, maxScore := list[0].Score, list[0].Score
	for _, sd := range list[1:] {
		if sd.Score < minScore {
			minScore = sd.Score
		}
		if sd.Score > maxScore {
			maxScore = sd.Score
		}
	}
	if maxScore == minScore {
		return 1
	}
	return (list[rank].Score - minScore) / (maxScore - minScore)
}
