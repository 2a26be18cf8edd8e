// Package conversation keeps bounded per-conversation history on top of a
// kv.Store and rewrites follow-up queries with recent context so the
// retrieval and generation stages see the pronouns resolved.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
	"github.com/ragkit-ai/go-ragkit/pkg/logger"
	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

const (
	keyPrefix = "conversation:"

	// DefaultMaxHistory bounds how many exchanges a conversation keeps.
	DefaultMaxHistory = 20

	// DefaultTTL is how long an idle conversation survives.
	DefaultTTL = 24 * time.Hour

	// DefaultWindow is how many recent exchanges contextualization uses
	// when the caller passes a non-positive window.
	DefaultWindow = 5

	// answerPreviewLen truncates answers inside contextualized queries, so
	// one verbose answer cannot dominate the rewritten prompt.
	answerPreviewLen = 200
)

// Exchange is one question and answer pair.
type Exchange struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Store persists conversation history in a kv.Store with tenant-scoped
// keys. Safe for concurrent use across conversations; appends to the same
// conversation are last-writer-wins, matching the backend's semantics.
type Store struct {
	store      kv.Store
	maxHistory int
	ttl        time.Duration
	log        logger.Adapter
}

// Verify it implements the orchestrator contract
var _ rag.ConversationStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxHistory overrides the exchange bound per conversation.
func WithMaxHistory(n int) Option {
	return func(s *Store) { s.maxHistory = n }
}

// WithTTL overrides how long idle conversations survive.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(log logger.Adapter) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store over store.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		store:      store,
		maxHistory: DefaultMaxHistory,
		ttl:        DefaultTTL,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one exchange, dropping the oldest entries beyond the
// history bound and refreshing the conversation's TTL.
func (s *Store) Append(ctx context.Context, tenantID, conversationID, question, answer string) error {
	history, err := s.load(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}

	history = append(history, Exchange{
		ID:       uuid.NewString(),
		Question: question,
		Answer:   answer,
		At:       time.Now(),
	})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	return s.save(ctx, tenantID, conversationID, history)
}

// History returns the last n exchanges in chronological order. A
// non-positive n returns the full retained history.
func (s *Store) History(ctx context.Context, tenantID, conversationID string, n int) ([]Exchange, error) {
	history, err := s.load(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return history, nil
}

// Contextualize rewrites a follow-up query with the recent exchanges so a
// question like "how do I configure it?" carries its referent. Queries in
// conversations with no history come back unchanged.
func (s *Store) Contextualize(ctx context.Context, tenantID, conversationID, query string, window int) (string, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	history, err := s.History(ctx, tenantID, conversationID, window)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return query, nil
	}

	var b strings.Builder
	b.WriteString("Given our recent conversation:\n")
	for _, ex := range history {
		b.WriteString("User: ")
		b.WriteString(ex.Question)
		b.WriteString("\nAI: ")
		b.WriteString(truncate(ex.Answer, answerPreviewLen))
		b.WriteString("\n")
	}
	b.WriteString("\nNew question: ")
	b.WriteString(query)
	return b.String(), nil
}

// Clear removes a conversation entirely.
func (s *Store) Clear(ctx context.Context, tenantID, conversationID string) error {
	if err := s.store.Delete(ctx, key(tenantID, conversationID)); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// Summary renders a short description of a conversation's retained
// history: how many exchanges, since when, and the most recent questions.
// A missing conversation summarizes to the empty string.
func (s *Store) Summary(ctx context.Context, tenantID, conversationID string) (string, error) {
	history, err := s.load(ctx, tenantID, conversationID)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d exchanges since %s. Recent questions: ",
		len(history), history[0].At.Format(time.RFC3339))
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for i, ex := range recent {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(truncate(ex.Question, 80))
	}
	return b.String(), nil
}

// Stats summarizes one conversation's retained history.
type Stats struct {
	Exchanges       int       `json:"exchanges"`
	FirstAt         time.Time `json:"firstAt,omitempty"`
	LastAt          time.Time `json:"lastAt,omitempty"`
	MeanQuestionLen int       `json:"meanQuestionLen"`
}

// Inspect computes Stats for a conversation.
func (s *Store) Inspect(ctx context.Context, tenantID, conversationID string) (Stats, error) {
	history, err := s.load(ctx, tenantID, conversationID)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Exchanges: len(history)}
	if len(history) == 0 {
		return st, nil
	}

	st.FirstAt = history[0].At
	st.LastAt = history[len(history)-1].At
	total := 0
	for _, ex := range history {
		total += len(ex.Question)
	}
	st.MeanQuestionLen = total / len(history)
	return st, nil
}

func (s *Store) load(ctx context.Context, tenantID, conversationID string) ([]Exchange, error) {
	data, ok, err := s.store.Get(ctx, key(tenantID, conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var history []Exchange
	if err := json.Unmarshal(data, &history); err != nil {
		// A corrupt conversation is unrecoverable; start over rather than
		// poisoning every later append.
		s.log.Log(ctx, logger.WarnLevel, "conversation history corrupt, resetting",
			logger.Attr("tenant", tenantID),
			logger.Attr("conversation", conversationID),
			logger.Attr("error", err))
		return nil, nil
	}
	return history, nil
}

func (s *Store) save(ctx context.Context, tenantID, conversationID string, history []Exchange) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.store.Set(ctx, key(tenantID, conversationID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Segments are escaped so ids containing the delimiter cannot alias
// another tenant's or conversation's key.
func key(tenantID, conversationID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix,
		kv.EscapeKeySegment(tenantID), kv.EscapeKeySegment(conversationID))
}

// truncate cuts s to at most n bytes at a rune boundary, appending an
// ellipsis when anything was cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
