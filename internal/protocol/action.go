// Package protocol parses and serializes the tagged action grammar agents
// emit (spec.md §4.2): exactly one top-level action tag per turn, with
// free-form prose outside any tag discarded.
//
// Grounded on the teacher's ports.FunctionCallParser interface
// (internal/agent/ports/parser.go: "Parse extracts tool calls from
// content"), generalized from a single tool-call grammar to the full
// four-tag action grammar the spec requires.
package protocol

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/antigravity-dev/oedr/internal/errs"
)

// Kind enumerates the action tags an agent turn may contain.
type Kind string

const (
	KindToolCall     Kind = "tool_call"
	KindWriteOutline Kind = "write_outline"
	KindWrite        Kind = "write"
	KindTerminate    Kind = "terminate"
)

// Action is the parsed result of one agent turn.
type Action struct {
	Kind Kind

	// ToolCall payload
	ToolName string
	ToolArgs json.RawMessage

	// WriteOutline / Write payload (raw markdown body, tags not stripped
	// of their <citation> spans — the outline parser consumes those).
	Markdown string

	// Terminate payload
	Reason string
}

// tagPattern matches the first of any of the four top-level tags, in
// document order — "first valid top-level tag wins" is the spec's
// resolution of its own open question (spec §9).
var tagPattern = regexp.MustCompile(`(?s)<(tool_call|write_outline|write|terminate)>(.*?)</(tool_call|write_outline|write|terminate)>`)

type toolCallPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Parse extracts the first well-formed top-level action tag from content.
// Prose outside any tag is discarded. A present-but-malformed tag (e.g. bad
// JSON inside <tool_call>) yields a *errs.ProtocolError rather than falling
// through to a later tag, so the agent gets precise corrective feedback.
func Parse(content string) (Action, error) {
	matches := tagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return Action{}, errs.NewProtocolError("NoActionTag", "no top-level action tag found in response")
	}

	m := matches[0]
	open, body, closeTag := m[1], m[2], m[3]
	if open != closeTag {
		return Action{}, errs.NewProtocolError("MismatchedTag", fmt.Sprintf("opening tag %q does not match closing tag %q", open, closeTag))
	}

	switch Kind(open) {
	case KindToolCall:
		var payload toolCallPayload
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &payload); err != nil {
			return Action{}, errs.NewProtocolError("MalformedToolCallJSON", err.Error())
		}
		if strings.TrimSpace(payload.Name) == "" {
			return Action{}, errs.NewProtocolError("MissingToolName", "tool_call JSON missing \"name\"")
		}
		return Action{Kind: KindToolCall, ToolName: payload.Name, ToolArgs: payload.Arguments}, nil

	case KindWriteOutline:
		return Action{Kind: KindWriteOutline, Markdown: strings.TrimSpace(body)}, nil

	case KindWrite:
		return Action{Kind: KindWrite, Markdown: strings.TrimSpace(body)}, nil

	case KindTerminate:
		return Action{Kind: KindTerminate, Reason: strings.TrimSpace(body)}, nil

	default:
		return Action{}, errs.NewProtocolError("UnknownTag", open)
	}
}

// SerializeToolCall renders a <tool_call> tag for tests/fixtures and for any
// agent-side echoing of its own emitted action into transcript history.
func SerializeToolCall(name string, args json.RawMessage) string {
	payload := toolCallPayload{Name: name, Arguments: args}
	body, _ := json.Marshal(payload)
	return fmt.Sprintf("<tool_call>%s</tool_call>", body)
}

// SerializeTerminate renders a <terminate> tag.
func SerializeTerminate(reason string) string {
	return fmt.Sprintf("<terminate>%s</terminate>", reason)
}

var citationPattern = regexp.MustCompile(`<citation>([^<]*)</citation>`)

// ExtractCitations returns the ordered, deduplicated set of evidence IDs
// found in every <citation> span within md (spec §4.2).
func ExtractCitations(md string) []string {
	matches := citationPattern.FindAllStringSubmatch(md, -1)
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range matches {
		for _, raw := range strings.Split(m[1], ",") {
			id := strings.TrimSpace(raw)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// footnotePattern matches [^ev_NNNN] style footnote references used in the
// Writer's section bodies (spec §4.2, §6).
var footnotePattern = regexp.MustCompile(`\[\^(ev_\d{4})\]`)

// ExtractFootnotes returns the ordered, deduplicated set of evidence IDs
// referenced via [^ev_NNNN] footnotes in body.
func ExtractFootnotes(body string) []string {
	matches := footnotePattern.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range matches {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
