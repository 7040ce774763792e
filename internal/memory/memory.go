/*
Package memory wires the EvoMemory subsystem together: confidence
scoring, the durable neuron store, RAG-Lite retrieval and rule
generation behind one facade.

The serving layer and the inference wrapper only ever talk to this
package; they pass plain strings and scalars in and get ids, snippets
and statistics back. The retrieval index is rebuilt from the store on
startup and kept in sync synchronously on every write, so retrieval
never lags persistence.
*/
package memory

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/khanglvm/evomemory/internal/config"
	"github.com/khanglvm/evomemory/internal/confidence"
	"github.com/khanglvm/evomemory/internal/evolve"
	"github.com/khanglvm/evomemory/internal/search"
	"github.com/khanglvm/evomemory/internal/storage"
)

// Snippet is one retrieved past interaction, ready for prompt
// augmentation.
type Snippet struct {
	NeuronID   int64   `json:"neuron_id"`
	Input      string  `json:"input"`
	Output     string  `json:"output"`
	SkillID    string  `json:"skill_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

// Memory is the EvoMemory facade.
type Memory struct {
	cfg   *config.Config
	store *storage.SQLiteStore
	index *search.Index
	gen   *evolve.Generator
}

// Open opens (or creates) the memory at cfg.DataDir and rebuilds the
// retrieval index from the store.
func Open(cfg *config.Config) (*Memory, error) {
	store, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open neuron store: %w", err)
	}
	store.SetMoodBuckets(cfg.Confidence.LowBelow, cfg.Confidence.HighAtLeast)

	m := &Memory{
		cfg:   cfg,
		store: store,
		index: search.NewIndex(cfg.Search),
		gen:   evolve.NewGenerator(store, cfg.Evolve, cfg.SnapshotPath()),
	}

	if err := m.rebuildIndex(); err != nil {
		store.Close()
		return nil, err
	}

	return m, nil
}

// Remember scores, persists and indexes one interaction, and may kick
// off a background evolution cycle. Returns the new neuron id and the
// scorer's assessment.
func (m *Memory) Remember(inputText, outputText, skillID string) (int64, confidence.Assessment, error) {
	assessment := confidence.ScoreWith(m.cfg.Confidence, inputText, outputText)

	id, err := m.RememberScored(inputText, outputText, assessment.Confidence, skillID)
	if err != nil {
		return 0, confidence.Assessment{}, err
	}

	return id, assessment, nil
}

// RememberScored persists an interaction with a caller-supplied
// confidence, for serving layers that score responses themselves.
func (m *Memory) RememberScored(inputText, outputText string, conf float64, skillID string) (int64, error) {
	n := &storage.Neuron{
		InputText:  inputText,
		OutputText: outputText,
		Confidence: conf,
		SkillID:    skillID,
	}

	id, err := m.store.SaveNeuron(n)
	if err != nil {
		return 0, err
	}

	m.index.Add(documentFor(n))

	total, err := m.store.CountNeurons()
	if err != nil {
		log.Printf("Warning: failed to read neuron count, skipping evolution check: %v", err)
		return id, nil
	}
	m.gen.MaybeTrigger(total)

	return id, nil
}

// Recall returns up to topK past interactions relevant to the query.
// An empty or all-stopword query yields an empty result, not an error.
// A neuron present in the store but missing from the index triggers one
// re-index and retry; if the inconsistency persists it escalates as a
// storage error.
func (m *Memory) Recall(query string, topK int) ([]Snippet, error) {
	results, err := m.retrieveConsistent(query, topK)
	if err != nil {
		return nil, err
	}

	snippets := make([]Snippet, 0, len(results))
	for _, res := range results {
		n, err := m.store.GetNeuron(res.ID)

		var notFound *storage.NotFoundError
		if errors.As(err, &notFound) {
			// Stale index entry for a deleted neuron.
			m.index.Remove(res.ID)
			continue
		}
		if err != nil {
			return nil, err
		}

		snippets = append(snippets, Snippet{
			NeuronID:   n.ID,
			Input:      n.InputText,
			Output:     n.OutputText,
			SkillID:    n.SkillID,
			Confidence: n.Confidence,
			Score:      res.Score,
		})
	}

	return snippets, nil
}

// PromptContext formats the most relevant past interactions as a block
// to prepend to a model prompt. Returns "" when nothing relevant is
// stored. maxChars bounds the block size.
func (m *Memory) PromptContext(query string, maxChars int) (string, error) {
	snippets, err := m.Recall(query, 3)
	if err != nil {
		return "", err
	}
	if len(snippets) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("### Relevant past interactions:\n")

	wrote := 0
	for _, s := range snippets {
		entry := fmt.Sprintf("- Input: %s\n  Output: %s\n  (confidence: %.2f)\n",
			truncate(s.Input, 100), truncate(s.Output, 150), s.Confidence)

		if maxChars > 0 && b.Len()+len(entry) > maxChars {
			break
		}

		b.WriteString(entry)
		wrote++
	}

	if wrote == 0 {
		return "", nil
	}

	return b.String(), nil
}

// Feedback records the user's rating for a past response.
func (m *Memory) Feedback(id int64, feedback int) error {
	return m.store.UpdateFeedback(id, feedback)
}

// Stats summarizes the memory.
func (m *Memory) Stats() (*storage.Stats, error) {
	return m.store.Stats()
}

// Prune deletes old low-confidence neurons per the configured retention
// policy and drops them from the index. Returns how many were deleted.
func (m *Memory) Prune() (int, error) {
	maxAge := time.Duration(m.cfg.Prune.MaxAgeDays) * 24 * time.Hour

	ids, err := m.store.Prune(maxAge, m.cfg.Prune.ConfidenceBelow)
	if err != nil {
		return 0, err
	}

	m.index.Remove(ids...)
	return len(ids), nil
}

// Compact compresses duplicate low-value neurons into meta-neurons.
func (m *Memory) Compact() (int, error) {
	return m.store.Compress(m.cfg.Compress.MinClusterSize, m.cfg.Compress.ConfidenceBelow)
}

// Evolve forces a rule generation cycle. The report is nil when a cycle
// is already in progress.
func (m *Memory) Evolve() (*evolve.Report, error) {
	return m.gen.Run()
}

// Rules lists all synthesized rules, highest priority first.
func (m *Memory) Rules() ([]*storage.Rule, error) {
	return m.store.ListRules()
}

// ExportRules rewrites the rule snapshot from the current rule set.
func (m *Memory) ExportRules() (string, error) {
	rules, err := m.store.ListRules()
	if err != nil {
		return "", err
	}

	path := m.cfg.SnapshotPath()
	if err := evolve.WriteSnapshot(path, rules); err != nil {
		return "", err
	}

	return path, nil
}

// Store exposes the underlying store for skill registry management.
func (m *Memory) Store() storage.Store {
	return m.store
}

// Close closes the underlying store.
func (m *Memory) Close() error {
	return m.store.Close()
}

// retrieveConsistent runs retrieval with opportunistic index-consistency
// checking: a store/index count mismatch re-indexes once and retries,
// a second mismatch escalates.
func (m *Memory) retrieveConsistent(query string, topK int) ([]search.Result, error) {
	for attempt := 0; ; attempt++ {
		total, err := m.store.CountNeurons()
		if err != nil {
			return nil, err
		}

		if total == m.index.DocCount() {
			return m.index.Retrieve(query, topK), nil
		}

		if attempt > 0 {
			return nil, &storage.StorageError{
				Op:  "recall",
				Err: fmt.Errorf("retrieval index still inconsistent with store after re-index (%d stored, %d indexed)", total, m.index.DocCount()),
			}
		}

		log.Printf("Warning: retrieval index inconsistent with store (%d stored, %d indexed), re-indexing", total, m.index.DocCount())
		if err := m.repairIndex(); err != nil {
			return nil, err
		}
	}
}

// rebuildIndex loads every stored neuron into a fresh index.
func (m *Memory) rebuildIndex() error {
	neurons, err := m.store.ListRecent(0, "")
	if err != nil {
		return fmt.Errorf("failed to rebuild retrieval index: %w", err)
	}

	docs := make([]search.Document, len(neurons))
	for i, n := range neurons {
		docs[i] = documentFor(n)
	}
	m.index.Add(docs...)

	return nil
}

// repairIndex adds stored neurons missing from the index and drops
// indexed ids no longer in the store.
func (m *Memory) repairIndex() error {
	neurons, err := m.store.ListRecent(0, "")
	if err != nil {
		return err
	}

	stored := make(map[int64]bool, len(neurons))
	for _, n := range neurons {
		stored[n.ID] = true
		if !m.index.Has(n.ID) {
			m.index.Add(documentFor(n))
		}
	}

	for _, id := range m.index.IDs() {
		if !stored[id] {
			m.index.Remove(id)
		}
	}

	return nil
}

// documentFor builds the retrieval document for a neuron: concatenated
// text plus the input hash for the hybrid exact-repeat boost.
func documentFor(n *storage.Neuron) search.Document {
	return search.Document{
		ID:        n.ID,
		Text:      n.InputText + " " + n.OutputText,
		Hash:      n.ContextHash,
		CreatedAt: n.CreatedAt,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
