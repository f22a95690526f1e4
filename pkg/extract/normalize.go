package extract

import (
	"regexp"
	"strings"
)

var (
	spaceRun   = regexp.MustCompile(`[ ]{2,}`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses line-ending and whitespace noise left behind by text extraction.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
