package tools

import "regexp"

// Credential patterns scrubbed from tool output before it is returned to
// the LLM. The exec tool shells out to gh and docker, so GitHub tokens and
// registry credentials are the main leak vectors.
var credentialPatterns = []*regexp.Regexp{
	// GitHub personal access / OAuth / app tokens
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`),
	regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{22,}`),
	// Anthropic
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
	// Docker Hub tokens
	regexp.MustCompile(`dckr_pat_[a-zA-Z0-9_-]{20,}`),
	// Generic key=value patterns (case-insensitive)
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redactedPlaceholder = "[REDACTED]"

// ScrubCredentials replaces known credential patterns in text with [REDACTED].
func ScrubCredentials(text string) string {
	for _, pat := range credentialPatterns {
		text = pat.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
