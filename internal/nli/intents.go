package nli

import (
	"regexp"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

type intentPattern struct {
	intent  domain.Intent
	pattern *regexp.Regexp
}

// defaultIntentPatterns is the ordered classifier table, matched against
// preprocessed text. First match wins; order is authoritative, there is no
// scoring. Creation rows sit first because their phrasings contain vm
// tokens weaker rows below would claim, and the bare-reference rows sit
// last as fallbacks.
func defaultIntentPatterns() []intentPattern {
	return []intentPattern{
		{domain.IntentCreateVM, regexp.MustCompile(`\bcreate\b.*\b(?:vm|machine)\b`)},
		{domain.IntentCreateVM, regexp.MustCompile(`\b(?:make|provision|spin)\b.*\b(?:vm|machine)\b`)},
		{domain.IntentCreateVM, regexp.MustCompile(`\bnew\s+(?:vm|machine)\b`)},

		{domain.IntentDeleteVM, regexp.MustCompile(`\b(?:delete|destroy|remove)\s+(?:vm|machine)\s+(\w+)`)},

		{domain.IntentRestartVM, regexp.MustCompile(`\b(?:restart|reboot)\s+(?:vm|machine)\s+(\w+)`)},

		{domain.IntentStartVM, regexp.MustCompile(`\b(?:start|boot|launch)\s+(?:vm|machine)\s+(\w+)`)},
		{domain.IntentStartVM, regexp.MustCompile(`\b(?:power|turn)\s+on\s+(?:vm|machine)\s+(\w+)`)},

		{domain.IntentStopVM, regexp.MustCompile(`\b(?:stop|halt|shutdown)\s+(?:vm|machine)\s+(\w+)`)},
		{domain.IntentStopVM, regexp.MustCompile(`\bshut\s+down\s+(?:vm|machine)\s+(\w+)`)},
		{domain.IntentStopVM, regexp.MustCompile(`\b(?:power|turn)\s+off\s+(?:vm|machine)\s+(\w+)`)},

		{domain.IntentVMStatus, regexp.MustCompile(`\b(?:status|state|check)\s+(?:vm|machine)\s+(\w+)`)},
		{domain.IntentVMStatus, regexp.MustCompile(`\b(?:vm|machine)\s+(\w+)\s+(?:status|state|run)\b`)},

		{domain.IntentListContainers, regexp.MustCompile(`\b(?:list|show|display)\b.*\b(?:container|lxc|ct)\b`)},

		{domain.IntentListVMs, regexp.MustCompile(`\b(?:list|show|display)\b.*\b(?:vm|machine)\b`)},

		{domain.IntentNodeStatus, regexp.MustCompile(`\b(?:status|state|check)\s+node\s+(\w+)`)},
		{domain.IntentNodeStatus, regexp.MustCompile(`\bnode\s+(\w+)\s+(?:status|state)\b`)},
		{domain.IntentNodeStatus, regexp.MustCompile(`\b(?:show|display)\b.*\bnode\s+(\w+)`)},
		{domain.IntentNodeStatus, regexp.MustCompile(`\bnode\s+status\b`)},

		{domain.IntentClusterStatus, regexp.MustCompile(`\bcluster\b`)},
		{domain.IntentClusterStatus, regexp.MustCompile(`\bquorum\b`)},
		{domain.IntentClusterStatus, regexp.MustCompile(`\b(?:list|show|display)\b.*\bnode\b`)},

		{domain.IntentStorageInfo, regexp.MustCompile(`\bstorage\b`)},
		{domain.IntentStorageInfo, regexp.MustCompile(`\bdisk\s+space\b`)},
		{domain.IntentStorageInfo, regexp.MustCompile(`\bdatastore\b`)},

		{domain.IntentHelp, regexp.MustCompile(`\bhelp\b`)},
		{domain.IntentHelp, regexp.MustCompile(`\bcommand\b`)},

		// Bare guest or node references read as status queries.
		{domain.IntentVMStatus, regexp.MustCompile(`^(?:vm|machine)\s+(\d+)$`)},
		{domain.IntentNodeStatus, regexp.MustCompile(`^node\s+(\w+)$`)},
	}
}

// Classifier assigns one intent from the fixed vocabulary to a preprocessed
// utterance. Three stages: the ordered pattern table, coarse keyword
// heuristics, then context verb shortcuts bound to the focused VM.
type Classifier struct {
	table []intentPattern
}

// NewClassifier creates a classifier over shared language resources.
func NewClassifier(res *Resources) *Classifier {
	return &Classifier{table: res.intentPatterns}
}

// Classify maps preprocessed text to (intent, captured groups). Unmatched
// input comes back as IntentUnknown with no captures.
func (c *Classifier) Classify(text string, convCtx *ConversationContext) (domain.Intent, []string) {
	// Stage 1: the pattern table, in declaration order.
	for _, row := range c.table {
		m := row.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return row.intent, m[1:]
		}
		return row.intent, nil
	}

	tokens := strings.Fields(text)

	// Stage 2: keyword heuristics for phrasings the table missed.
	if containsToken(tokens, "list") && (containsToken(tokens, "vm") || containsToken(tokens, "machine")) {
		return domain.IntentListVMs, nil
	}
	if containsToken(tokens, "start") && (containsToken(tokens, "vm") || containsToken(tokens, "machine")) {
		if guess := tokenAfter(tokens, "vm", "machine"); guess != "" {
			return domain.IntentStartVM, []string{guess}
		}
		return domain.IntentStartVM, nil
	}

	// Stage 3: bare verbs act on the VM currently in focus.
	if convCtx != nil && convCtx.CurrentVM != "" {
		for _, tok := range tokens {
			switch tok {
			case "start", "boot", "power":
				return domain.IntentStartVM, []string{convCtx.CurrentVM}
			case "stop", "shutdown", "halt":
				return domain.IntentStopVM, []string{convCtx.CurrentVM}
			case "restart", "reboot":
				return domain.IntentRestartVM, []string{convCtx.CurrentVM}
			case "status", "check":
				return domain.IntentVMStatus, []string{convCtx.CurrentVM}
			}
		}
	}

	return domain.IntentUnknown, nil
}

func containsToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

// tokenAfter returns the token following the first occurrence of any of the
// given words, or "" when none is followed by anything.
func tokenAfter(tokens []string, words ...string) string {
	for i, tok := range tokens {
		for _, w := range words {
			if tok == w && i+1 < len(tokens) {
				return tokens[i+1]
			}
		}
	}
	return ""
}
