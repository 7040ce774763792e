package memory

import (
	"errors"
	"strings"
	"testing"

	"github.com/khanglvm/evomemory/internal/config"
	"github.com/khanglvm/evomemory/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	// Keep background evolution out of these tests.
	cfg.Evolve.Interval = 0
	return cfg
}

func openTestMemory(t *testing.T, cfg *config.Config) *Memory {
	t.Helper()

	mem, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open memory: %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	return mem
}

func TestRememberAndRecall(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	ledID, assessment, err := mem.Remember(
		"come si accende il led",
		"usa gpio write 17 high per accendere il led",
		"gpio_control",
	)
	if err != nil {
		t.Fatalf("failed to remember: %v", err)
	}
	if ledID <= 0 {
		t.Fatalf("expected positive neuron id, got %d", ledID)
	}
	if assessment.Confidence <= 0 || assessment.Confidence > 1 {
		t.Errorf("assessment confidence out of range: %f", assessment.Confidence)
	}

	for _, pair := range [][2]string{
		{"che tempo fa oggi a milano", "oggi a milano splende il sole"},
		{"leggi la temperatura dal sensore", "la temperatura ambiente misura venti gradi"},
	} {
		if _, _, err := mem.Remember(pair[0], pair[1], ""); err != nil {
			t.Fatalf("failed to remember: %v", err)
		}
	}

	snippets, err := mem.Recall("come si accende il led", 3)
	if err != nil {
		t.Fatalf("failed to recall: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected at least one snippet")
	}

	found := false
	for _, s := range snippets {
		if s.NeuronID == ledID {
			found = true
			if s.Score <= 0 {
				t.Errorf("expected positive score for the LED neuron, got %f", s.Score)
			}
			if s.SkillID != "gpio_control" {
				t.Errorf("snippet lost its skill tag: %q", s.SkillID)
			}
		}
	}
	if !found {
		t.Error("the LED neuron must appear in the top results for its own question")
	}
	if snippets[0].NeuronID != ledID {
		t.Errorf("expected the LED neuron ranked first, got %d", snippets[0].NeuronID)
	}
}

func TestRecallEmptyQuery(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	if _, _, err := mem.Remember("accendi il led", "fatto", ""); err != nil {
		t.Fatalf("failed to remember: %v", err)
	}

	snippets, err := mem.Recall("", 5)
	if err != nil {
		t.Fatalf("empty query must not error: %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("expected empty result for empty query, got %d snippets", len(snippets))
	}
}

func TestRememberScoredValidation(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	_, err := mem.RememberScored("domanda", "risposta", 1.5, "")

	var verr *storage.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for confidence 1.5, got %v", err)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	id, _, err := mem.Remember("accendi il led", "fatto con gpio write", "")
	if err != nil {
		t.Fatalf("failed to remember: %v", err)
	}

	if err := mem.Feedback(id, 1); err != nil {
		t.Fatalf("failed to record feedback: %v", err)
	}

	n, err := mem.Store().GetNeuron(id)
	if err != nil {
		t.Fatalf("failed to get neuron: %v", err)
	}
	if n.UserFeedback != 1 {
		t.Errorf("expected feedback 1, got %d", n.UserFeedback)
	}
	if n.Mood != storage.MoodPositive {
		t.Errorf("expected positive mood after positive feedback, got %q", n.Mood)
	}
}

func TestIndexRebuiltOnReopen(t *testing.T) {
	cfg := testConfig(t)

	mem := openTestMemory(t, cfg)
	id, _, err := mem.Remember("come si accende il led", "usa gpio write", "")
	if err != nil {
		t.Fatalf("failed to remember: %v", err)
	}
	if err := mem.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened := openTestMemory(t, cfg)

	snippets, err := reopened.Recall("come si accende il led", 3)
	if err != nil {
		t.Fatalf("failed to recall after reopen: %v", err)
	}
	if len(snippets) != 1 || snippets[0].NeuronID != id {
		t.Errorf("expected the persisted neuron retrievable after reopen, got %+v", snippets)
	}
}

func TestRecallRepairsInconsistentIndex(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	id, _, err := mem.Remember("come si accende il led", "usa gpio write", "")
	if err != nil {
		t.Fatalf("failed to remember: %v", err)
	}

	// Simulate an index that lost a document the store still holds.
	mem.index.Remove(id)

	snippets, err := mem.Recall("come si accende il led", 3)
	if err != nil {
		t.Fatalf("recall must repair a one-off inconsistency: %v", err)
	}
	if len(snippets) != 1 || snippets[0].NeuronID != id {
		t.Errorf("expected the neuron back after re-index, got %+v", snippets)
	}
}

func TestPromptContext(t *testing.T) {
	mem := openTestMemory(t, testConfig(t))

	block, err := mem.PromptContext("come si accende il led", 2000)
	if err != nil {
		t.Fatalf("prompt context on empty memory failed: %v", err)
	}
	if block != "" {
		t.Errorf("expected empty block on empty memory, got %q", block)
	}

	if _, _, err := mem.Remember("come si accende il led", "usa gpio write 17 high", ""); err != nil {
		t.Fatalf("failed to remember: %v", err)
	}

	block, err = mem.PromptContext("come si accende il led", 2000)
	if err != nil {
		t.Fatalf("failed to build prompt context: %v", err)
	}
	if !strings.HasPrefix(block, "### Relevant past interactions:\n") {
		t.Errorf("unexpected block header: %q", block)
	}
	if !strings.Contains(block, "usa gpio write 17 high") {
		t.Errorf("expected the stored output in the block, got %q", block)
	}

	// A character limit too small for any entry yields an empty block.
	block, err = mem.PromptContext("come si accende il led", 40)
	if err != nil {
		t.Fatalf("failed to build prompt context: %v", err)
	}
	if block != "" {
		t.Errorf("expected empty block under a tiny character limit, got %q", block)
	}
}

func TestPruneDropsFromIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prune.MaxAgeDays = 0
	cfg.Prune.ConfidenceBelow = 0.99
	mem := openTestMemory(t, cfg)

	if _, err := mem.RememberScored("vecchia domanda incerta", "boh non saprei dire", 0.2, ""); err != nil {
		t.Fatalf("failed to remember: %v", err)
	}

	deleted, err := mem.Prune()
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 neuron pruned, got %d", deleted)
	}

	snippets, err := mem.Recall("vecchia domanda incerta", 5)
	if err != nil {
		t.Fatalf("failed to recall: %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("pruned neuron still retrievable: %+v", snippets)
	}
}

func TestEvolveAndExportRules(t *testing.T) {
	cfg := testConfig(t)
	mem := openTestMemory(t, cfg)

	for i := 0; i < 5; i++ {
		input := "controlla il rele numero " + strings.Repeat("x", i+1)
		if _, err := mem.RememberScored(input, "rele commutato correttamente", 0.95, "gpio_control"); err != nil {
			t.Fatalf("failed to remember: %v", err)
		}
	}

	report, err := mem.Evolve()
	if err != nil {
		t.Fatalf("evolution cycle failed: %v", err)
	}
	if report == nil || report.Committed != 1 {
		t.Fatalf("expected one trust rule committed, got %+v", report)
	}

	rules, err := mem.Rules()
	if err != nil {
		t.Fatalf("failed to list rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Trigger.Key() != "skill:gpio_control" {
		t.Fatalf("unexpected rule set: %+v", rules)
	}

	path, err := mem.ExportRules()
	if err != nil {
		t.Fatalf("failed to export rules: %v", err)
	}
	if path != cfg.SnapshotPath() {
		t.Errorf("expected snapshot at %q, got %q", cfg.SnapshotPath(), path)
	}
}

func TestCompactThroughFacade(t *testing.T) {
	cfg := testConfig(t)
	mem := openTestMemory(t, cfg)

	for i := 0; i < 3; i++ {
		if _, err := mem.RememberScored("che ore sono", "non saprei dire adesso", 0.2, ""); err != nil {
			t.Fatalf("failed to remember: %v", err)
		}
	}

	written, err := mem.Compact()
	if err != nil {
		t.Fatalf("failed to compact: %v", err)
	}
	if written != 1 {
		t.Errorf("expected 1 cluster compressed, got %d", written)
	}
}
