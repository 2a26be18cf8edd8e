package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	backing := kv.NewInMemory()
	t.Cleanup(func() { backing.Close() })
	return New(backing, opts...)
}

func TestAppendAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "tenant-a", "conv-1", "what is rag?", "retrieval augmented generation"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, "tenant-a", "conv-1", "how do i use it?", "retrieve then generate"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	history, err := s.History(ctx, "tenant-a", "conv-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(history))
	}
	if history[0].Question != "what is rag?" {
		t.Errorf("history out of order: %+v", history)
	}
	if history[0].ID == "" || history[0].ID == history[1].ID {
		t.Error("exchanges must get distinct non-empty ids")
	}
}

func TestHistoryBounded(t *testing.T) {
	s := newTestStore(t, WithMaxHistory(3))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.Append(ctx, "tenant-a", "conv-1", fmt.Sprintf("q%d", i), "a"); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	history, err := s.History(ctx, "tenant-a", "conv-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected history bounded at 3, got %d", len(history))
	}
	// Oldest dropped, newest kept.
	if history[0].Question != "q7" || history[2].Question != "q9" {
		t.Errorf("wrong exchanges retained: %+v", history)
	}
}

func TestHistoryWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		s.Append(ctx, "tenant-a", "conv-1", fmt.Sprintf("q%d", i), "a")
	}

	history, err := s.History(ctx, "tenant-a", "conv-1", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0].Question != "q4" {
		t.Errorf("window wrong: %+v", history)
	}
}

func TestContextualizeNoHistory(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Contextualize(context.Background(), "tenant-a", "conv-1", "what is rag?", 5)
	if err != nil {
		t.Fatalf("Contextualize failed: %v", err)
	}
	if got != "what is rag?" {
		t.Errorf("query with no history must pass through unchanged, got %q", got)
	}
}

func TestContextualizeWithHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "tenant-a", "conv-1", "what is spring ai?", "a framework for ai engineering")

	got, err := s.Contextualize(ctx, "tenant-a", "conv-1", "how do i configure it?", 5)
	if err != nil {
		t.Fatalf("Contextualize failed: %v", err)
	}

	if !strings.HasPrefix(got, "Given our recent conversation:\n") {
		t.Errorf("missing preamble: %q", got)
	}
	if !strings.Contains(got, "User: what is spring ai?") {
		t.Errorf("missing question line: %q", got)
	}
	if !strings.Contains(got, "AI: a framework for ai engineering") {
		t.Errorf("missing answer line: %q", got)
	}
	if !strings.HasSuffix(got, "New question: how do i configure it?") {
		t.Errorf("missing new question suffix: %q", got)
	}
}

func TestContextualizeTruncatesLongAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("verbose answer ", 100)
	s.Append(ctx, "tenant-a", "conv-1", "q", long)

	got, err := s.Contextualize(ctx, "tenant-a", "conv-1", "follow up", 5)
	if err != nil {
		t.Fatalf("Contextualize failed: %v", err)
	}
	if strings.Contains(got, long) {
		t.Error("full answer leaked into contextualized query")
	}
	if !strings.Contains(got, "...") {
		t.Errorf("truncated answer missing ellipsis: %q", got)
	}
}

func TestConversationTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "tenant-a", "conv-1", "secret question", "secret answer")

	history, err := s.History(ctx, "tenant-b", "conv-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Error("tenant-b can read tenant-a's conversation")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "tenant-a", "conv-1", "q", "a")
	if err := s.Clear(ctx, "tenant-a", "conv-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	history, _ := s.History(ctx, "tenant-a", "conv-1", 0)
	if len(history) != 0 {
		t.Error("history survived Clear")
	}
}

func TestCorruptHistoryResets(t *testing.T) {
	backing := kv.NewInMemory()
	defer backing.Close()
	s := New(backing)
	ctx := context.Background()

	backing.Set(ctx, key("tenant-a", "conv-1"), []byte("{broken"), 0)

	if err := s.Append(ctx, "tenant-a", "conv-1", "q", "a"); err != nil {
		t.Fatalf("Append over corrupt history failed: %v", err)
	}
	history, _ := s.History(ctx, "tenant-a", "conv-1", 0)
	if len(history) != 1 {
		t.Errorf("expected fresh history after corruption, got %d entries", len(history))
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	summary, err := s.Summary(ctx, "tenant-a", "missing")
	if err != nil {
		t.Fatalf("Summary on missing conversation failed: %v", err)
	}
	if summary != "" {
		t.Errorf("missing conversation Summary = %q, want empty", summary)
	}

	for _, q := range []string{"first question", "second question", "third question", "fourth question"} {
		s.Append(ctx, "tenant-a", "conv-1", q, "a")
	}

	summary, err = s.Summary(ctx, "tenant-a", "conv-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !strings.HasPrefix(summary, "4 exchanges since ") {
		t.Errorf("Summary = %q, want exchange count prefix", summary)
	}
	if strings.Contains(summary, "first question") {
		t.Errorf("Summary should only carry recent questions: %q", summary)
	}
	for _, q := range []string{"second question", "third question", "fourth question"} {
		if !strings.Contains(summary, q) {
			t.Errorf("Summary missing %q: %q", q, summary)
		}
	}
}

func TestKeyDelimiterInIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "a", "b:c", "via tenant a", "x")
	s.Append(ctx, "a:b", "c", "via tenant a:b", "x")

	if key("a", "b:c") == key("a:b", "c") {
		t.Fatal("distinct tenant/conversation pairs share a storage key")
	}
	history, err := s.History(ctx, "a", "b:c", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Question != "via tenant a" {
		t.Errorf("history = %+v, conversations bled into each other", history)
	}
}

func TestInspect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Inspect(ctx, "tenant-a", "empty")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if st.Exchanges != 0 {
		t.Errorf("empty conversation Exchanges = %d", st.Exchanges)
	}

	s.Append(ctx, "tenant-a", "conv-1", "abcd", "a")
	s.Append(ctx, "tenant-a", "conv-1", "abcdefgh", "a")

	st, err = s.Inspect(ctx, "tenant-a", "conv-1")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if st.Exchanges != 2 {
		t.Errorf("Exchanges = %d", st.Exchanges)
	}
	if st.MeanQuestionLen != 6 {
		t.Errorf("MeanQuestionLen = %d, want 6", st.MeanQuestionLen)
	}
	if st.LastAt.Before(st.FirstAt) {
		t.Error("LastAt before FirstAt")
	}
}

func TestSimilarExchanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "tenant-a", "conv-1", "how do i configure the response cache", "set a ttl")
	s.Append(ctx, "tenant-a", "conv-1", "what is the capital of france", "paris")
	s.Append(ctx, "tenant-a", "conv-1", "how do i configure the cache ttl", "via options")

	got, err := s.SimilarExchanges(ctx, "tenant-a", "conv-1", "configure the response cache", 10)
	if err != nil {
		t.Fatalf("SimilarExchanges failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected similar exchanges")
	}
	for _, se := range got {
		if strings.Contains(se.Question, "france") {
			t.Errorf("unrelated exchange matched: %q", se.Question)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Error("results not sorted by similarity")
		}
	}
}

func TestSimilarExchangesEmptyConversation(t *testing.T) {
	s := newTestStore(t)

	got, err := s.SimilarExchanges(context.Background(), "tenant-a", "none", "anything", 5)
	if err != nil {
		t.Fatalf("SimilarExchanges failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty conversation, got %v", got)
	}
}
