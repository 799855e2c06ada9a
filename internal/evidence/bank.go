// Package evidence implements the Evidence Bank (spec.md §4.1): an
// append-only, content-deduplicated store mapping stable "ev_NNNN" IDs to
// retrieved source records, backed by a JSONL file plus raw-text sidecars.
//
// Grounded on the teacher's single-writer persistence idiom
// (internal/materials/store/postgres/store_test.go exercises exactly this
// serialize-concurrent-writers property) and its golang-lru-backed caching
// of expensive re-reads (internal/agent/tool_registry.go's mcpTools TTL
// cache).
package evidence

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MissingEvidenceError is returned by BulkGet when one or more requested IDs
// are not present in the Bank (spec §4.1).
type MissingEvidenceError struct {
	IDs []string
}

func (e *MissingEvidenceError) Error() string {
	return fmt.Sprintf("missing evidence ids: %v", e.IDs)
}

// Hook is called synchronously after a new Evidence record is durably
// appended, so the journal (C9) can emit an evidence_added event without the
// Bank importing the journal package.
type Hook func(ev Evidence)

// Bank is the Evidence store for a single run. All mutation goes through a
// mutex-serialized writer; reads take a read lock over an in-memory index.
type Bank struct {
	dir string // run_dir/evidence_bank

	mu       sync.RWMutex
	byID     map[string]Evidence
	byHash   map[string]string // hash -> id
	order    []string          // insertion order, for deterministic summaries()
	nextSeq  int

	rawCache *lru.Cache[string, string]

	onAdd Hook
}

// Open creates (or resumes) a Bank rooted at dir, replaying any existing
// evidence.jsonl so the counter and dedup index are warm. A crash mid-write
// can leave a truncated trailing line; it is discarded per spec §4.1.
func Open(dir string, onAdd Hook) (*Bank, error) {
	if err := os.MkdirAll(filepath.Join(dir, "raw"), 0o755); err != nil {
		return nil, fmt.Errorf("evidence: create dir: %w", err)
	}
	cache, err := lru.New[string, string](256)
	if err != nil {
		return nil, fmt.Errorf("evidence: init cache: %w", err)
	}
	b := &Bank{
		dir:      dir,
		byID:     make(map[string]Evidence),
		byHash:   make(map[string]string),
		rawCache: cache,
		onAdd:    onAdd,
	}
	if err := b.loadExisting(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bank) evidencePath() string { return filepath.Join(b.dir, "evidence.jsonl") }

func (b *Bank) loadExisting() error {
	f, err := os.Open(b.evidencePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("evidence: open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	maxSeq := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Evidence
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// Truncated or corrupt trailing line: discard and stop replay
			// (spec §4.1 "a crash mid-write leaves at most one truncated
			// trailing line, which replay discards").
			break
		}
		b.byID[ev.ID] = ev
		b.byHash[ev.Hash] = ev.ID
		b.order = append(b.order, ev.ID)
		if n, ok := parseSeq(ev.ID); ok && n > maxSeq {
			maxSeq = n
		}
	}
	b.nextSeq = maxSeq
	return nil
}

func parseSeq(id string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(id, "ev_%04d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// Add computes the content hash of (normalized URL + normalized body); if a
// record with that hash already exists, its ID is returned without writing a
// new record (spec §4.1 "dedup is content-based, not URL-based"). Otherwise
// a new dense ev_NNNN ID is assigned and the record is durably appended.
func (b *Bank) Add(d Draft) (string, error) {
	hash := ContentHash(d.Source.URL, d.RawText)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.byHash[hash]; ok {
		return existing, nil
	}

	b.nextSeq++
	id := fmt.Sprintf("ev_%04d", b.nextSeq)

	rawRef := ""
	if d.RawText != "" {
		rawRef = filepath.Join("raw", hash+".txt")
		if err := os.WriteFile(filepath.Join(b.dir, rawRef), []byte(d.RawText), 0o644); err != nil {
			b.nextSeq--
			return "", fmt.Errorf("evidence: write raw sidecar: %w", err)
		}
	}

	ev := Evidence{
		ID:      id,
		Query:   d.Query,
		Source:  d.Source,
		Summary: d.Summary,
		Items:   d.Items,
		RawRef:  rawRef,
		Hash:    hash,
	}

	if err := b.appendLine(ev); err != nil {
		b.nextSeq--
		return "", err
	}

	b.byID[id] = ev
	b.byHash[hash] = id
	b.order = append(b.order, id)
	if d.RawText != "" {
		b.rawCache.Add(hash, d.RawText)
	}
	if b.onAdd != nil {
		b.onAdd(ev)
	}
	return id, nil
}

// appendLine writes one JSON line and fsyncs before returning, so a crash
// right after this call leaves the line either fully present or absent
// (spec §4.1 "write-then-fsync of the JSONL line before the counter is
// advanced in memory").
func (b *Bank) appendLine(ev Evidence) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("evidence: marshal: %w", err)
	}
	f, err := os.OpenFile(b.evidencePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("evidence: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("evidence: append: %w", err)
	}
	return f.Sync()
}

// Get returns a single Evidence record, or ok=false if it doesn't exist.
func (b *Bank) Get(id string) (Evidence, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev, ok := b.byID[id]
	return ev, ok
}

// BulkGet returns records for ids in the given order. Any missing ID is
// collected into a *MissingEvidenceError rather than silently dropped (spec
// §4.1).
func (b *Bank) BulkGet(ids []string) ([]Evidence, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Evidence, 0, len(ids))
	var missing []string
	for _, id := range ids {
		ev, ok := b.byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, ev)
	}
	if len(missing) > 0 {
		return out, &MissingEvidenceError{IDs: missing}
	}
	return out, nil
}

// SummaryRow is one line of the (id, url, summary) projection used to build
// Planner prompts without ever including raw pages (spec §4.1).
type SummaryRow struct {
	ID      string
	URL     string
	Summary string
}

// Summaries returns the (id, url, summary) projection for ids, or for every
// record in insertion order when ids is nil.
func (b *Bank) Summaries(ids []string) []SummaryRow {
	b.mu.RLock()
	defer b.mu.RUnlock()

	targets := ids
	if targets == nil {
		targets = b.order
	}
	rows := make([]SummaryRow, 0, len(targets))
	for _, id := range targets {
		ev, ok := b.byID[id]
		if !ok {
			continue
		}
		rows = append(rows, SummaryRow{ID: ev.ID, URL: ev.Source.URL, Summary: ev.Summary})
	}
	return rows
}

// Exists returns the ids that do not resolve in the Bank, in input order; an
// empty result means every id resolves (used by the outline citation
// validator, spec §4.2/§8).
func (b *Bank) Exists(ids []string) (missing []string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range ids {
		if _, ok := b.byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Stats reports aggregate counts for Planner readiness checks (spec §4.3).
func (b *Bank) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	domains := make(map[string]struct{})
	totalChars := 0
	for _, id := range b.order {
		ev := b.byID[id]
		totalChars += len(ev.Summary)
		if host := hostOf(ev.Source.URL); host != "" {
			domains[host] = struct{}{}
		}
	}
	return Stats{Count: len(b.order), TotalSummaryChars: totalChars, DistinctDomains: len(domains)}
}

// IDs returns every evidence ID in insertion (assignment) order.
func (b *Bank) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// RawText reads the raw extracted text for an Evidence record, consulting the
// LRU cache before touching disk.
func (b *Bank) RawText(ev Evidence) (string, error) {
	if ev.RawRef == "" {
		return "", nil
	}
	if cached, ok := b.rawCache.Get(ev.Hash); ok {
		return cached, nil
	}
	data, err := os.ReadFile(filepath.Join(b.dir, ev.RawRef))
	if err != nil {
		return "", fmt.Errorf("evidence: read raw %s: %w", ev.RawRef, err)
	}
	b.rawCache.Add(ev.Hash, string(data))
	return string(data), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ContentHash normalizes a URL and body and returns their combined SHA-256,
// used as the dedup key (spec §3 "content hash of (normalized URL +
// normalized body)").
func ContentHash(rawURL, body string) string {
	sum := sha256.Sum256([]byte(normalizeURL(rawURL) + "\n" + normalizeBody(body)))
	return hex.EncodeToString(sum[:])
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	q := u.Query()
	for _, tracking := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "ref"} {
		q.Del(tracking)
	}
	u.RawQuery = q.Encode()
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func normalizeBody(body string) string {
	return strings.Join(strings.Fields(body), " ")
}
