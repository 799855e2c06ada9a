package outline

import (
	"fmt"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/evidence"
)

// Validate checks the structural invariants of spec §3: heading levels never
// skip a depth along any root-to-leaf path, and every non-leaf node carries
// its own structural content (children or bullets) rather than existing as
// an empty wrapper.
func Validate(root *Node) error {
	for _, child := range root.Children {
		if child.Level > root.Level+1 {
			return fmt.Errorf("outline: node %s: top-level section skips from level %d to %d", child.ID, root.Level, child.Level)
		}
		if err := validateNode(child, 1); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node, expectedMinLevel int) error {
	if n.Level < expectedMinLevel {
		return fmt.Errorf("outline: node %s: level %d is shallower than its position allows (min %d)", n.ID, n.Level, expectedMinLevel)
	}
	if len(n.Children) == 0 && len(n.Bullets) == 0 {
		return fmt.Errorf("outline: node %s (%q): section has neither bullets nor children", n.ID, n.Title)
	}
	for _, child := range n.Children {
		if child.Level > n.Level+1 {
			return fmt.Errorf("outline: node %s: child %s skips from level %d to %d", n.ID, child.ID, n.Level, child.Level)
		}
		if err := validateNode(child, n.Level); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCitations confirms every citation ID anywhere in the tree resolves
// in bank, returning *errs.ProtocolError (UnresolvedCitation) otherwise
// (spec §4.2, §8 "citation integrity").
func ValidateCitations(root *Node, bank *evidence.Bank) error {
	missing := bank.Exists(AllCitations(root))
	if len(missing) > 0 {
		return errs.UnresolvedCitation(missing)
	}
	return nil
}
