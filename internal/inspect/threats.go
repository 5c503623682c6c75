package inspect

import (
	"regexp"
	"sort"

	"github.com/ppiankov/agentward/internal/model"
)

// threatRule is one compiled threat pattern.
type threatRule struct {
	re          *regexp.Regexp
	typ         model.ThreatType
	severity    model.Severity
	description string
}

// builtinThreats is the default rule table. Ordering here does not
// matter: matches are reported in payload position order, earliest
// first, and ties between overlapping rules break on scan order.
var builtinThreats = []threatRule{
	{
		re:          regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
		typ:         model.ThreatPromptInjection,
		severity:    model.SevHigh,
		description: "Attempt to override prior instructions",
	},
	{
		re:          regexp.MustCompile(`(?i)disregard\s+(your|the)\s+(system\s+)?prompt`),
		typ:         model.ThreatPromptInjection,
		severity:    model.SevHigh,
		description: "Attempt to discard the system prompt",
	},
	{
		re:          regexp.MustCompile(`(?i)you\s+are\s+now\s+(DAN|an?\s+unrestricted)`),
		typ:         model.ThreatJailbreak,
		severity:    model.SevHigh,
		description: "Role-reassignment jailbreak",
	},
	{
		re:          regexp.MustCompile(`(?i)(reveal|print|repeat)\s+(your|the)\s+(system\s+prompt|instructions)`),
		typ:         model.ThreatPromptInjection,
		severity:    model.SevMedium,
		description: "Attempt to extract the system prompt",
	},
	{
		re:          regexp.MustCompile(`(?i)(exfiltrate|upload|send)\s+.{0,40}(credentials|secrets|private\s+keys?)`),
		typ:         model.ThreatDataExfil,
		severity:    model.SevCritical,
		description: "Instruction to exfiltrate credentials",
	},
	{
		re:          regexp.MustCompile(`(?i)rm\s+-rf\s+[/~]`),
		typ:         model.ThreatCommandExec,
		severity:    model.SevCritical,
		description: "Destructive shell command",
	},
	{
		re:          regexp.MustCompile("(?i)curl\\s+[^|;]{0,120}\\|\\s*(ba)?sh"),
		typ:         model.ThreatCommandExec,
		severity:    model.SevCritical,
		description: "Remote script piped into a shell",
	},
	{
		re:          regexp.MustCompile(`(?i)base64\s+-d\s*\|\s*(ba)?sh`),
		typ:         model.ThreatCommandExec,
		severity:    model.SevHigh,
		description: "Obfuscated payload piped into a shell",
	},
}

// positioned pairs a threat with its earliest match offset so results
// can be ordered by payload position.
type positioned struct {
	at     int
	threat model.Threat
}

// scanThreats runs the rule set over text and returns threats ordered
// by match position. The caller reports the first entry; that tie-break
// is by scan order, deliberately not by severity.
func scanThreats(text string, rules []threatRule) model.ScanResult {
	var found []positioned
	for _, rule := range rules {
		loc := rule.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		found = append(found, positioned{
			at: loc[0],
			threat: model.Threat{
				Type:        rule.typ,
				Pattern:     text[loc[0]:loc[1]],
				Description: rule.description,
				Severity:    rule.severity,
			},
		})
	}

	if len(found) == 0 {
		return model.ScanResult{Safe: true}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].at < found[j].at })

	threats := make([]model.Threat, len(found))
	for i, p := range found {
		threats[i] = p.threat
	}
	return model.ScanResult{Safe: false, Threats: threats}
}
