// Package ledger tracks which providers succeed on which topics so the router
// can favor them on later queries.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// Version is the snapshot format written by Export.
	Version = 1
	// HistoryCap bounds the conversation history.
	HistoryCap = 200
	// KnowledgeCap bounds knowledge entries kept per topic.
	KnowledgeCap = 20

	priorSuccessRate = 0.5
	maxSummaryLen    = 280
)

// ProviderStats aggregates every call made to one provider.
type ProviderStats struct {
	Success   int     `json:"success"`
	Total     int     `json:"total"`
	AvgLength float64 `json:"avg_length"` // mean words per successful response
}

// Call is the outcome of one provider call within a query.
type Call struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Success  bool   `json:"success"`
	Words    int    `json:"words"`
}

// Outcome summarizes a completed query for the ledger.
type Outcome struct {
	Query          string
	Topic          string
	Complexity     string
	Winner         string // provider whose answer became the primary, empty if none
	WinnerModel    string
	Confidence     float64
	ConsensusLevel string
	Summary        string
	Calls          []Call
}

// Entry is one item of conversation history.
type Entry struct {
	ID             string    `json:"id"`
	Query          string    `json:"query"`
	Topic          string    `json:"topic"`
	Complexity     string    `json:"complexity"`
	Winner         string    `json:"winner,omitempty"`
	Confidence     float64   `json:"confidence"`
	ConsensusLevel string    `json:"consensus_level"`
	Calls          []Call    `json:"calls"`
	Timestamp      time.Time `json:"timestamp"`
}

// Knowledge is a short answer remembered for a topic.
type Knowledge struct {
	Query      string    `json:"query"`
	Summary    string    `json:"summary"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot is the persisted form of the ledger.
type Snapshot struct {
	Version   int                       `json:"version"`
	Queries   int                       `json:"queries"`
	Topics    map[string]map[string]int `json:"topics"`
	Providers map[string]ProviderStats  `json:"providers"`
	History   []Entry                   `json:"history"`
	Knowledge map[string][]Knowledge    `json:"knowledge"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Stats is a read-only summary for display.
type Stats struct {
	Queries      int                       `json:"queries"`
	HistorySize  int                       `json:"history_size"`
	Providers    map[string]ProviderStats  `json:"providers"`
	SuccessRates map[string]float64        `json:"success_rates"`
	Topics       map[string]map[string]int `json:"topics"`
	BestByTopic  map[string]string         `json:"best_by_topic"`
}

// Ledger is the learning state. It is safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	queries   int
	topics    map[string]map[string]int
	providers map[string]*ProviderStats
	history   []Entry
	knowledge map[string][]Knowledge
	updatedAt time.Time
	now       func() time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	l := &Ledger{now: time.Now}
	l.clear()
	return l
}

func (l *Ledger) clear() {
	l.queries = 0
	l.topics = make(map[string]map[string]int)
	l.providers = make(map[string]*ProviderStats)
	l.history = nil
	l.knowledge = make(map[string][]Knowledge)
	l.updatedAt = time.Time{}
}

// Record folds a query outcome into the ledger.
func (l *Ledger) Record(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.queries++
	l.updatedAt = now

	for _, c := range o.Calls {
		ps := l.providers[c.Provider]
		if ps == nil {
			ps = &ProviderStats{}
			l.providers[c.Provider] = ps
		}
		ps.Total++
		if c.Success {
			ps.Success++
			ps.AvgLength += (float64(c.Words) - ps.AvgLength) / float64(ps.Success)
		}
	}

	topic := o.Topic
	if topic == "" {
		topic = "general"
	}
	if o.Winner != "" {
		if l.topics[topic] == nil {
			l.topics[topic] = make(map[string]int)
		}
		l.topics[topic][o.Winner]++
	}

	l.history = append(l.history, Entry{
		ID:             uuid.NewString(),
		Query:          o.Query,
		Topic:          topic,
		Complexity:     o.Complexity,
		Winner:         o.Winner,
		Confidence:     o.Confidence,
		ConsensusLevel: o.ConsensusLevel,
		Calls:          append([]Call(nil), o.Calls...),
		Timestamp:      now,
	})
	l.history = capHistory(l.history)

	if o.Winner != "" && o.Summary != "" {
		source := o.Winner
		if o.WinnerModel != "" {
			source += "/" + o.WinnerModel
		}
		l.knowledge[topic] = capKnowledge(append(l.knowledge[topic], Knowledge{
			Query:      o.Query,
			Summary:    truncate(o.Summary, maxSummaryLen),
			Source:     source,
			Confidence: o.Confidence,
			Timestamp:  now,
		}))
	}
}

// SuccessRate is the provider's fraction of successful calls, or 0.5 when
// it has never been called.
func (l *Ledger) SuccessRate(provider string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.successRate(provider)
}

func (l *Ledger) successRate(provider string) float64 {
	ps := l.providers[provider]
	if ps == nil || ps.Total == 0 {
		return priorSuccessRate
	}
	return float64(ps.Success) / float64(ps.Total)
}

// TopicAffinity is the provider's share of wins on the topic, in [0,1].
func (l *Ledger) TopicAffinity(topic, provider string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	hits := l.topics[topic]
	total := 0
	for _, n := range hits {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(hits[provider]) / float64(total)
}

// BestProvider returns the provider with the most wins on the topic. Ties go
// to the alphabetically first provider. ok is false when the topic has no
// wins yet.
func (l *Ledger) BestProvider(topic string) (provider string, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return bestOf(l.topics[topic])
}

func bestOf(hits map[string]int) (string, bool) {
	best, bestHits := "", 0
	for p, n := range hits {
		if n > bestHits || (n == bestHits && n > 0 && p < best) {
			best, bestHits = p, n
		}
	}
	return best, bestHits > 0
}

// History returns the most recent entries, newest last. limit <= 0 returns
// all of them.
func (l *Ledger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h := l.history
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	return append([]Entry(nil), h...)
}

// Knowledge returns the remembered answers for a topic, oldest first.
func (l *Ledger) Knowledge(topic string) []Knowledge {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Knowledge(nil), l.knowledge[topic]...)
}

// Stats summarizes the ledger.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{
		Queries:      l.queries,
		HistorySize:  len(l.history),
		Providers:    make(map[string]ProviderStats, len(l.providers)),
		SuccessRates: make(map[string]float64, len(l.providers)),
		Topics:       copyTopics(l.topics),
		BestByTopic:  make(map[string]string, len(l.topics)),
	}
	for p, ps := range l.providers {
		s.Providers[p] = *ps
		s.SuccessRates[p] = l.successRate(p)
	}
	for topic, hits := range l.topics {
		if best, ok := bestOf(hits); ok {
			s.BestByTopic[topic] = best
		}
	}
	return s
}

// Snapshot returns a deep copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Version:   Version,
		Queries:   l.queries,
		Topics:    copyTopics(l.topics),
		Providers: make(map[string]ProviderStats, len(l.providers)),
		History:   append([]Entry{}, l.history...),
		Knowledge: make(map[string][]Knowledge, len(l.knowledge)),
		UpdatedAt: l.updatedAt,
	}
	for p, ps := range l.providers {
		snap.Providers[p] = *ps
	}
	for topic, entries := range l.knowledge {
		snap.Knowledge[topic] = append([]Knowledge(nil), entries...)
	}
	return snap
}

// Export encodes the ledger as versioned JSON.
func (l *Ledger) Export() ([]byte, error) {
	return json.MarshalIndent(l.Snapshot(), "", "  ")
}

// Import replaces the ledger state with an exported snapshot. Unknown
// versions and inconsistent counts are rejected, and the history and
// knowledge caps are re-applied.
func (l *Ledger) Import(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode ledger: %w", err)
	}
	if snap.Version != Version {
		return fmt.Errorf("unsupported ledger version %d (want %d)", snap.Version, Version)
	}
	if err := snap.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.clear()
	l.queries = snap.Queries
	l.updatedAt = snap.UpdatedAt
	l.topics = copyTopics(snap.Topics)
	for p, ps := range snap.Providers {
		ps := ps
		l.providers[p] = &ps
	}
	l.history = capHistory(append([]Entry(nil), snap.History...))
	for topic, entries := range snap.Knowledge {
		l.knowledge[topic] = capKnowledge(append([]Knowledge(nil), entries...))
	}
	return nil
}

// validate rejects counts that would put success rates or topic affinities
// outside [0, 1].
func (s Snapshot) validate() error {
	if s.Queries < 0 {
		return fmt.Errorf("invalid ledger: negative query count %d", s.Queries)
	}
	for p, ps := range s.Providers {
		if ps.Success < 0 || ps.Total < 0 || ps.Success > ps.Total {
			return fmt.Errorf("invalid ledger: provider %s has %d successes of %d", p, ps.Success, ps.Total)
		}
		if ps.AvgLength < 0 {
			return fmt.Errorf("invalid ledger: provider %s has negative average length", p)
		}
	}
	for topic, hits := range s.Topics {
		for p, n := range hits {
			if n < 0 {
				return fmt.Errorf("invalid ledger: topic %s has %d wins for %s", topic, n, p)
			}
		}
	}
	return nil
}

// Reset discards all learned state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clear()
}

// Save writes the ledger to path, replacing any existing file atomically.
func (l *Ledger) Save(path string) error {
	data, err := l.Export()
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load replaces the ledger state with the contents of path.
func (l *Ledger) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return l.Import(data)
}

// Open loads the ledger at path, or returns an empty ledger when the file
// does not exist yet.
func Open(path string) (*Ledger, error) {
	l := New()
	if err := l.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("load ledger %s: %w", path, err)
	}
	return l, nil
}

// Topics lists the topics with recorded wins, sorted.
func (l *Ledger) Topics() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	topics := make([]string, 0, len(l.topics))
	for t := range l.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func capHistory(h []Entry) []Entry {
	if over := len(h) - HistoryCap; over > 0 {
		h = append(h[:0], h[over:]...)
	}
	return h
}

func capKnowledge(k []Knowledge) []Knowledge {
	if over := len(k) - KnowledgeCap; over > 0 {
		k = append(k[:0], k[over:]...)
	}
	return k
}

func copyTopics(src map[string]map[string]int) map[string]map[string]int {
	dst := make(map[string]map[string]int, len(src))
	for topic, hits := range src {
		m := make(map[string]int, len(hits))
		for p, n := range hits {
			m[p] = n
		}
		dst[topic] = m
	}
	return dst
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
