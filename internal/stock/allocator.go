package stock

import "strings"

// Allocation is the outcome of taking quantity lines off the front of a pool.
type Allocation struct {
	// Delivered holds the claimed lines in pool order.
	Delivered []string
	// Remaining is the pool text left after the claim.
	Remaining string
	// Shortfall is how many lines were requested but unavailable. Zero on a
	// full allocation.
	Shortfall int
}

// Lines splits pool text into deliverable lines. Windows line endings are
// tolerated and blank lines are dropped, so vendors can paste from anywhere.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

// Render joins lines back into canonical pool text.
func Render(lines []string) string {
	return strings.Join(lines, "\n")
}

// Allocate claims quantity lines from the front of the pool, first in first
// out. Allocation is all or nothing: when the pool cannot cover the claim,
// no lines are delivered, the pool stays untouched, and the shortfall is
// reported.
func Allocate(text string, quantity int) Allocation {
	lines := Lines(text)
	if quantity <= 0 {
		return Allocation{Remaining: Render(lines)}
	}
	if quantity > len(lines) {
		return Allocation{
			Remaining: Render(lines),
			Shortfall: quantity - len(lines),
		}
	}
	return Allocation{
		Delivered: lines[:quantity],
		Remaining: Render(lines[quantity:]),
	}
}
