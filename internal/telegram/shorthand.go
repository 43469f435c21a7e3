package telegram

import (
	"regexp"
	"strings"
)

var (
	separatedShorthand = regexp.MustCompile(`^([a-zA-Z_\s]+)\s*[-:]\s*(\d+)$`)
	spacedShorthand    = regexp.MustCompile(`^([a-zA-Z_\s]+)\s+(\d+)$`)
)

// RewriteShorthand turns quick entries like "sabji - 450" or "doodh 80" into
// a sentence the agent reads as an expense. Anything else is returned as is.
func RewriteShorthand(text string) string {
	m := separatedShorthand.FindStringSubmatch(text)
	if m == nil {
		m = spacedShorthand.FindStringSubmatch(text)
	}
	if m == nil {
		return text
	}

	words := strings.Join(strings.Fields(m[1]), " ")
	return words + " me " + m[2] + " rupaye kharch hua"
}
