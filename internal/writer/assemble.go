package writer

import (
	"fmt"
	"strings"

	"github.com/antigravity-dev/oedr/internal/evidence"
)

// Assemble concatenates every section's markdown body in outline order and
// appends a References list rendering each cited evidence ID exactly once,
// in first-use order across the whole report (spec §4.4, §6).
func Assemble(sections []Section, bank *evidence.Bank) string {
	var body strings.Builder
	var seen = make(map[string]struct{})
	var ordered []string

	for i, s := range sections {
		if i > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(s.MarkdownBody)
		for _, id := range s.UsedCitationIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}

	if len(ordered) == 0 {
		return body.String()
	}

	body.WriteString("\n\n## References\n\n")
	for _, id := range ordered {
		ev, ok := bank.Get(id)
		if !ok {
			continue
		}
		body.WriteString(referenceLine(id, ev))
	}
	return body.String()
}

func referenceLine(id string, ev evidence.Evidence) string {
	var tail strings.Builder
	tail.WriteString(ev.Source.Title)
	if ev.Source.Publisher != "" {
		fmt.Fprintf(&tail, " — %s", ev.Source.Publisher)
	}
	if ev.Source.PublishedAt != "" {
		fmt.Fprintf(&tail, " (%s)", ev.Source.PublishedAt)
	}
	return fmt.Sprintf("[^%s]: %s. %s\n", id, tail.String(), ev.Source.URL)
}
