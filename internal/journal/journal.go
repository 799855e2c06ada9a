// Package journal implements the append-only event log of spec.md §4.5/§6:
// orchestrator- and agent-level state transitions are recorded to
// events.jsonl with a monotonic step counter, each line fsynced before
// Append returns. Events are appended as the transitions happen, typically
// right after the effect they describe, and callers do not stop on an
// Append error. Replaying the file reconstructs a crashed or
// intentionally-paused run.
//
// Grounded on the Evidence Bank's append-then-fsync idiom
// (internal/evidence/bank.go, itself grounded on the teacher's
// single-writer persistence discipline) and on the teacher's
// save-after-every-step checkpoint contract
// (internal/agent/domain/react/checkpoint_test.go: "Save is called once per
// completed step, never speculatively").
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind is the closed set of event kinds a run may emit (spec §3 Event,
// §4.5). A reader encountering an unrecognized kind during replay ignores
// the record rather than failing, so the journal format can grow forward-
// compatibly.
type Kind string

const (
	KindRunStarted        Kind = "run_started"
	KindPlannerStep       Kind = "planner_step"
	KindSearchIssued      Kind = "search_issued"
	KindEvidenceAdded     Kind = "evidence_added"
	KindOutlineUpdated    Kind = "outline_updated"
	KindPlannerTerminated Kind = "planner_terminated"
	KindWriterStep        Kind = "writer_step"
	KindSectionRetrieved  Kind = "section_retrieved"
	KindSectionWritten    Kind = "section_written"
	KindWriterTerminated  Kind = "writer_terminated"
	KindError             Kind = "error"
	KindRunFinished       Kind = "run_finished"
)

// Event is one durable record (spec §3).
type Event struct {
	Timestamp time.Time       `json:"ts"`
	RunID     string          `json:"run_id"`
	Step      int             `json:"step"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal is the single writer for one run's events.jsonl.
type Journal struct {
	dir   string
	runID string
	clock func() time.Time

	mu       sync.Mutex
	nextStep int
}

// Open creates (or resumes) the journal rooted at dir, returning every event
// already on disk so the caller can fold them into an in-memory resume
// state (spec §4.5 "resume protocol"). A truncated trailing line from a
// crash mid-write is discarded, same as the Evidence Bank.
func Open(dir, runID string) (*Journal, []Event, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("journal: create dir: %w", err)
	}
	j := &Journal{dir: dir, runID: runID, clock: time.Now}
	events, maxStep, err := loadExisting(j.path())
	if err != nil {
		return nil, nil, err
	}
	j.nextStep = maxStep
	return j, events, nil
}

// SetClock overrides the timestamp source, for deterministic tests.
func (j *Journal) SetClock(clock func() time.Time) { j.clock = clock }

func (j *Journal) path() string { return filepath.Join(j.dir, "events.jsonl") }

func loadExisting(path string) ([]Event, int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("journal: open: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var events []Event
	maxStep := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			break
		}
		events = append(events, ev)
		if ev.Step > maxStep {
			maxStep = ev.Step
		}
	}
	return events, maxStep, nil
}

// Append marshals payload, assigns the next step number, and durably writes
// the event before returning. A write failure rolls the step counter back so
// a retry reuses the same step number.
func (j *Journal) Append(kind Kind, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("journal: marshal payload: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextStep++
	ev := Event{
		Timestamp: j.clock().UTC(),
		RunID:     j.runID,
		Step:      j.nextStep,
		Kind:      kind,
		Payload:   body,
	}
	if err := j.appendLine(ev); err != nil {
		j.nextStep--
		return Event{}, err
	}
	return ev, nil
}

func (j *Journal) appendLine(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("journal: marshal event: %w", err)
	}
	f, err := os.OpenFile(j.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return f.Sync()
}
