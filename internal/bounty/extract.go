package bounty

import (
	"regexp"
	"strconv"
	"strings"
)

// Amount is a bounty value extracted from issue text.
type Amount struct {
	Value    float64
	Currency string
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d+(?:,\d{3})*(?:\.\d{2})?)\s*(?:USD|USDC|bounty)?`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{2})?)\s*(USDC|USD)`),
	regexp.MustCompile(`(?i)bounty[:\s]+\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`),
}

// ExtractAmount pulls a bounty amount out of free-form issue text.
// It recognizes "$100", "100 USDC", "bounty: $50" and similar shapes.
// Returns nil when no amount is found.
func ExtractAmount(text string) *Amount {
	for _, p := range amountPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		currency := "USD"
		if len(m) > 2 && m[2] != "" {
			currency = strings.ToUpper(m[2])
		}
		return &Amount{Value: value, Currency: currency}
	}
	return nil
}

var repoURLPattern = regexp.MustCompile(`github\.com/(?:repos/)?([^/]+)/([^/]+)`)

// ParseRepoURL extracts owner and repo name from a GitHub URL, either
// the html form (github.com/owner/repo) or the API form
// (api.github.com/repos/owner/repo). Returns false when the URL does
// not reference a repository.
func ParseRepoURL(raw string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSuffix(m[2], ".git"), true
}

// Difficulty classifies an issue from its label names.
func Difficulty(labels []string) string {
	joined := strings.ToLower(strings.Join(labels, " "))
	switch {
	case strings.Contains(joined, "easy"), strings.Contains(joined, "beginner"), strings.Contains(joined, "good first"):
		return "easy"
	case strings.Contains(joined, "medium"), strings.Contains(joined, "intermediate"):
		return "medium"
	case strings.Contains(joined, "hard"), strings.Contains(joined, "complex"), strings.Contains(joined, "advanced"):
		return "hard"
	}
	return "unknown"
}
