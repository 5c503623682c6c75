package inspect

import (
	"regexp"

	"github.com/ppiankov/agentward/internal/model"
)

// secretRule is one compiled secret pattern with its redaction
// placeholder. Placeholders contain no quote or backslash characters so
// substitution inside a JSON string cannot break the document.
type secretRule struct {
	re          *regexp.Regexp
	kind        string
	placeholder string
}

var builtinSecrets = []secretRule{
	{
		re:          regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		kind:        "openai_api_key",
		placeholder: "[REDACTED:openai_api_key]",
	},
	{
		re:          regexp.MustCompile(`(ghp|gho|ghs|ghu)_[A-Za-z0-9]{36,}`),
		kind:        "github_token",
		placeholder: "[REDACTED:github_token]",
	},
	{
		re:          regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		kind:        "aws_access_key_id",
		placeholder: "[REDACTED:aws_access_key_id]",
	},
	{
		re:          regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),
		kind:        "slack_token",
		placeholder: "[REDACTED:slack_token]",
	},
	{
		re:          regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
		kind:        "jwt",
		placeholder: "[REDACTED:jwt]",
	},
	{
		re:          regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
		kind:        "private_key",
		placeholder: "[REDACTED:private_key]",
	},
	{
		re:          regexp.MustCompile(`(?i)(password|passwd|secret|api_key|apikey|auth_token)["']?\s*[=:]\s*["']?[^"'\s,}]{6,}`),
		kind:        "credential_pair",
		placeholder: "[REDACTED:credential_pair]",
	},
}

// scanAndRedact replaces every secret occurrence with its placeholder
// and records one SecretMatch per occurrence. The raw value is never
// kept beyond what substitution needs.
func scanAndRedact(text string, rules []secretRule) model.SecretScanResult {
	res := model.SecretScanResult{Redacted: text}
	for _, rule := range rules {
		locs := rule.re.FindAllStringIndex(res.Redacted, -1)
		if locs == nil {
			continue
		}
		for range locs {
			res.SecretsFound = append(res.SecretsFound, model.SecretMatch{
				Kind:        rule.kind,
				Placeholder: rule.placeholder,
			})
		}
		res.Redacted = rule.re.ReplaceAllString(res.Redacted, rule.placeholder)
	}
	return res
}
