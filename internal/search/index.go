/*
Package search implements RAG-Lite: an in-memory BM25 inverted index over
stored interactions.

The index is a derived, rebuildable view over the neuron store and holds
no source-of-truth data. Indexing is incremental and idempotent, and an
optional hybrid mode boosts documents whose normalized text hash matches
the query exactly (repeat-question detection).
*/
package search

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Params configures BM25 scoring and the hybrid boost.
type Params struct {
	// K1 is the BM25 term-frequency saturation parameter.
	K1 float64 `json:"k1"`

	// B is the BM25 length-normalization parameter.
	B float64 `json:"b"`

	// TopK is the default number of results returned by retrieval.
	TopK int `json:"top_k"`

	// Hybrid enables the exact normalized-hash boost.
	Hybrid bool `json:"hybrid"`

	// ExactMatchBoost multiplies the score of a document whose normalized
	// hash equals the query's hash. Only meaningful when Hybrid is true.
	ExactMatchBoost float64 `json:"exact_match_boost"`
}

// DefaultParams returns the standard BM25 parameters.
func DefaultParams() Params {
	return Params{
		K1:              1.5,
		B:               0.75,
		TopK:            5,
		Hybrid:          true,
		ExactMatchBoost: 2.0,
	}
}

// Document is the unit of indexing: one neuron's concatenated text.
type Document struct {
	// ID is the neuron id this document was built from.
	ID int64

	// Text is the concatenated input and output text.
	Text string

	// Hash is the normalized hash used by hybrid retrieval.
	Hash string

	// CreatedAt breaks score ties (newer wins).
	CreatedAt time.Time
}

// Result is one ranked retrieval hit.
type Result struct {
	ID    int64
	Score float64
}

// Index is the BM25 inverted index. Safe for one writer and many
// concurrent readers.
type Index struct {
	mu sync.RWMutex

	params Params

	// postings maps term -> document id -> term frequency.
	postings map[string]map[int64]int

	// docLen holds the token count per indexed document; membership in
	// this map is what makes re-indexing idempotent.
	docLen map[int64]int

	// docTime holds the creation time per document for tie-breaking.
	docTime map[int64]time.Time

	// byHash maps a normalized hash to the documents carrying it.
	byHash map[string][]int64

	totalLen int
}

// NewIndex creates an empty index with the given parameters.
func NewIndex(params Params) *Index {
	return &Index{
		params:   params,
		postings: make(map[string]map[int64]int),
		docLen:   make(map[int64]int),
		docTime:  make(map[int64]time.Time),
		byHash:   make(map[string][]int64),
	}
}

// Add indexes documents incrementally. A document whose id is already
// indexed is skipped, so calling Add twice with the same input leaves
// postings, document count and average length unchanged.
func (ix *Index) Add(docs ...Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, doc := range docs {
		if _, ok := ix.docLen[doc.ID]; ok {
			continue
		}

		tokens := Tokenize(doc.Text)

		ix.docLen[doc.ID] = len(tokens)
		ix.docTime[doc.ID] = doc.CreatedAt
		ix.totalLen += len(tokens)

		for _, term := range tokens {
			if ix.postings[term] == nil {
				ix.postings[term] = make(map[int64]int)
			}
			ix.postings[term][doc.ID]++
		}

		if doc.Hash != "" {
			ix.byHash[doc.Hash] = append(ix.byHash[doc.Hash], doc.ID)
		}
	}
}

// Remove drops documents from the index, keeping the derived view
// consistent after pruning. Unknown ids are ignored.
func (ix *Index) Remove(ids ...int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, id := range ids {
		length, ok := ix.docLen[id]
		if !ok {
			continue
		}

		ix.totalLen -= length
		delete(ix.docLen, id)
		delete(ix.docTime, id)

		for term, posting := range ix.postings {
			if _, ok := posting[id]; ok {
				delete(posting, id)
				if len(posting) == 0 {
					delete(ix.postings, term)
				}
			}
		}

		for hash, docIDs := range ix.byHash {
			kept := docIDs[:0]
			for _, docID := range docIDs {
				if docID != id {
					kept = append(kept, docID)
				}
			}
			if len(kept) == 0 {
				delete(ix.byHash, hash)
			} else {
				ix.byHash[hash] = kept
			}
		}
	}
}

// Has reports whether a document id is indexed.
func (ix *Index) Has(id int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	_, ok := ix.docLen[id]
	return ok
}

// IDs returns every indexed document id, unordered.
func (ix *Index) IDs() []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]int64, 0, len(ix.docLen))
	for id := range ix.docLen {
		ids = append(ids, id)
	}
	return ids
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return len(ix.docLen)
}

// Retrieve ranks indexed documents against the query with BM25:
//
//	score = Σ_t IDF(t) · (tf·(k1+1)) / (tf + k1·(1 - b + b·|D|/avgdl))
//	IDF(t) = ln((N - df + 0.5) / (df + 0.5) + 1)
//
// Documents scoring ≤ 0 are excluded, ties are broken by recency (newer
// wins) then by id. An empty or all-stopword query returns an empty
// result set, not an error.
func (ix *Index) Retrieve(query string, topK int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	terms := Tokenize(query)
	if len(terms) == 0 || len(ix.docLen) == 0 {
		return []Result{}
	}

	if topK <= 0 {
		topK = ix.params.TopK
	}

	n := float64(len(ix.docLen))
	avgdl := float64(ix.totalLen) / n

	scores := make(map[int64]float64)
	for _, term := range terms {
		posting := ix.postings[term]
		if len(posting) == 0 {
			continue
		}

		df := float64(len(posting))
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)

		for id, tf := range posting {
			freq := float64(tf)
			docLen := float64(ix.docLen[id])

			numerator := freq * (ix.params.K1 + 1)
			denominator := freq + ix.params.K1*(1-ix.params.B+ix.params.B*docLen/avgdl)

			scores[id] += idf * numerator / denominator
		}
	}

	if ix.params.Hybrid {
		for _, id := range ix.byHash[NormalizedHash(query)] {
			if scores[id] > 0 {
				scores[id] *= ix.params.ExactMatchBoost
			}
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		if score > 0 {
			results = append(results, Result{ID: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti, tj := ix.docTime[results[i].ID], ix.docTime[results[j].ID]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return results[i].ID > results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}
