package search

import (
	"fmt"
	"testing"
	"time"
)

func testDoc(id int64, text string, at time.Time) Document {
	return Document{
		ID:        id,
		Text:      text,
		Hash:      NormalizedHash(text),
		CreatedAt: at,
	}
}

func TestAddIsIdempotent(t *testing.T) {
	ix := NewIndex(DefaultParams())
	now := time.Now().UTC()

	doc := testDoc(1, "come si accende il led rosso", now)
	ix.Add(doc)
	ix.Add(doc)
	ix.Add(doc)

	if count := ix.DocCount(); count != 1 {
		t.Fatalf("expected 1 document after repeated Add, got %d", count)
	}

	// Scores must be identical to a single-add index.
	fresh := NewIndex(DefaultParams())
	fresh.Add(doc)

	got := ix.Retrieve("led rosso", 5)
	want := fresh.Retrieve("led rosso", 5)

	if len(got) != 1 || len(want) != 1 {
		t.Fatalf("expected one result from both indexes, got %d and %d", len(got), len(want))
	}
	if got[0].Score != want[0].Score {
		t.Errorf("re-adding changed the score: %f vs %f", got[0].Score, want[0].Score)
	}
}

func TestRetrieveRanksMatchFirst(t *testing.T) {
	ix := NewIndex(DefaultParams())
	now := time.Now().UTC()

	ix.Add(
		testDoc(1, "come si accende il led usa gpio write 17 high", now),
		testDoc(2, "che tempo fa oggi a milano", now.Add(time.Second)),
		testDoc(3, "leggi la temperatura dal sensore dht22", now.Add(2*time.Second)),
	)

	results := ix.Retrieve("accendere led", 5)

	if len(results) == 0 {
		t.Fatal("expected at least one result for 'accendere led'")
	}
	if results[0].ID != 1 {
		t.Errorf("expected neuron 1 first, got %d", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score, got %f", results[0].Score)
	}

	// Non-matching documents must not appear.
	for _, r := range results {
		if r.ID == 2 {
			t.Error("unrelated document ranked with positive score")
		}
	}
}

func TestRetrieveEmptyAndStopwordQueries(t *testing.T) {
	ix := NewIndex(DefaultParams())
	ix.Add(testDoc(1, "accendi il led", time.Now().UTC()))

	if results := ix.Retrieve("", 5); len(results) != 0 {
		t.Errorf("expected empty result for empty query, got %d hits", len(results))
	}
	if results := ix.Retrieve("il lo la the", 5); len(results) != 0 {
		t.Errorf("expected empty result for all-stopword query, got %d hits", len(results))
	}
}

func TestRetrieveTieBreakByRecency(t *testing.T) {
	ix := NewIndex(DefaultParams())
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	// Identical text gives identical BM25 scores.
	ix.Add(
		testDoc(1, "accendi il led rosso", older),
		testDoc(2, "accendi il led rosso", newer),
	)

	results := ix.Retrieve("accendi led rosso", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 2 {
		t.Errorf("expected newer neuron 2 first on tie, got %d", results[0].ID)
	}
}

func TestRetrieveTieBreakByIDWhenSameTime(t *testing.T) {
	ix := NewIndex(DefaultParams())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ix.Add(
		testDoc(7, "accendi il led rosso", now),
		testDoc(9, "accendi il led rosso", now),
	)

	results := ix.Retrieve("accendi led", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 9 {
		t.Errorf("expected higher id 9 first on full tie, got %d", results[0].ID)
	}
}

func TestRetrieveTopKLimit(t *testing.T) {
	ix := NewIndex(DefaultParams())
	now := time.Now().UTC()

	for i := int64(1); i <= 10; i++ {
		ix.Add(testDoc(i, fmt.Sprintf("led verde numero %d", i), now.Add(time.Duration(i)*time.Second)))
	}

	results := ix.Retrieve("led verde", 3)
	if len(results) != 3 {
		t.Errorf("expected top-3 results, got %d", len(results))
	}

	// topK <= 0 falls back to the configured default.
	results = ix.Retrieve("led verde", 0)
	if len(results) != DefaultParams().TopK {
		t.Errorf("expected default top-k %d results, got %d", DefaultParams().TopK, len(results))
	}
}

func TestHybridBoostPrefersExactRepeat(t *testing.T) {
	params := DefaultParams()
	params.Hybrid = true
	ix := NewIndex(params)
	now := time.Now().UTC()

	// Doc 2 repeats the query verbatim modulo punctuation; doc 1 shares
	// terms but also carries extra ones and is newer.
	ix.Add(
		testDoc(2, "come si accende il led", now),
		testDoc(1, "come si accende il led della scheda madre principale", now.Add(time.Hour)),
	)

	results := ix.Retrieve("Come si accende il LED?", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 2 {
		t.Errorf("expected exact repeat (neuron 2) boosted to first, got %d", results[0].ID)
	}

	// Without the boost the same query must not favor the repeat by hash.
	flat := DefaultParams()
	flat.Hybrid = false
	ix2 := NewIndex(flat)
	ix2.Add(
		testDoc(2, "come si accende il led", now),
		testDoc(1, "come si accende il led della scheda madre principale", now.Add(time.Hour)),
	)

	boosted := ix.Retrieve("come si accende il led", 5)
	plain := ix2.Retrieve("come si accende il led", 5)
	if boosted[0].Score <= plain[0].Score {
		t.Errorf("expected boosted score %f to exceed plain score %f", boosted[0].Score, plain[0].Score)
	}
}

func TestRemoveKeepsIndexConsistent(t *testing.T) {
	ix := NewIndex(DefaultParams())
	now := time.Now().UTC()

	ix.Add(
		testDoc(1, "accendi il led", now),
		testDoc(2, "spegni il led", now.Add(time.Second)),
	)

	ix.Remove(1)

	if ix.Has(1) {
		t.Error("expected neuron 1 gone after Remove")
	}
	if count := ix.DocCount(); count != 1 {
		t.Fatalf("expected 1 document after Remove, got %d", count)
	}

	results := ix.Retrieve("accendi led", 5)
	for _, r := range results {
		if r.ID == 1 {
			t.Error("removed document still retrievable")
		}
	}

	// Removing an unknown id is a no-op.
	ix.Remove(999)
	if count := ix.DocCount(); count != 1 {
		t.Errorf("removing unknown id changed document count to %d", count)
	}
}
