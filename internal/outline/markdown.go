package outline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antigravity-dev/oedr/internal/protocol"
)

// Render serializes root's children as Markdown headings with trailing
// <citation> spans and "- " bullet lines (spec §4.2, §6). root itself is
// never rendered. Render(root) is the external form Parse must invert
// exactly (spec §8 "round-trip and idempotence").
func Render(root *Node) string {
	var sb strings.Builder
	for _, child := range root.Children {
		renderNode(&sb, child)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderNode(sb *strings.Builder, n *Node) {
	sb.WriteString(strings.Repeat("#", n.Level))
	sb.WriteString(" ")
	sb.WriteString(n.Title)
	if len(n.Citations) > 0 {
		sb.WriteString(" <citation>")
		sb.WriteString(strings.Join(n.Citations, ","))
		sb.WriteString("</citation>")
	}
	sb.WriteString("\n")
	for _, bullet := range n.Bullets {
		sb.WriteString("- ")
		sb.WriteString(bullet)
		sb.WriteString("\n")
	}
	for _, child := range n.Children {
		renderNode(sb, child)
	}
}

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
var bulletPattern = regexp.MustCompile(`^-\s+(.*)$`)

// Parse reconstructs the outline tree from Render's Markdown form. IDs are
// recomputed from sibling position via AssignIDs, not read off the text, so
// Parse(Render(tree)) is structurally equal to tree whenever tree's own IDs
// were themselves assigned by AssignIDs.
func Parse(markdown string) (*Node, error) {
	root := New()
	// stack[i] holds the most recently opened node at heading level i+1.
	var stack []*Node

	lines := strings.Split(markdown, "\n")
	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			title, citations := splitCitationSpan(strings.TrimSpace(m[2]))

			if level > len(stack)+1 {
				return nil, fmt.Errorf("outline: line %d: heading level %d skips from depth %d", lineNo+1, level, len(stack))
			}
			node := &Node{Title: title, Level: level, Citations: citations}

			stack = stack[:level-1]
			if level == 1 {
				root.Children = append(root.Children, node)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
			continue
		}

		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			if len(stack) == 0 {
				return nil, fmt.Errorf("outline: line %d: bullet with no enclosing heading", lineNo+1)
			}
			current := stack[len(stack)-1]
			bullet, citations := splitCitationSpan(strings.TrimSpace(m[1]))
			current.Bullets = append(current.Bullets, bullet)
			current.Citations = appendUnique(current.Citations, citations...)
			continue
		}

		return nil, fmt.Errorf("outline: line %d: unrecognized line %q", lineNo+1, line)
	}

	AssignIDs(root)
	return root, nil
}

// splitCitationSpan strips a trailing <citation>...</citation> span off text
// and returns the remainder alongside the referenced evidence IDs.
func splitCitationSpan(text string) (string, []string) {
	ids := protocol.ExtractCitations(text)
	if len(ids) == 0 {
		return text, nil
	}
	stripped := citationPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(stripped), ids
}

var citationPattern = regexp.MustCompile(`\s*<citation>[^<]*</citation>\s*$`)

func appendUnique(existing []string, add ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	out := existing
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
