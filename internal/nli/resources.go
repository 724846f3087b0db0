package nli

import (
	"regexp"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

// Resources bundles the immutable language data every pipeline stage shares:
// the stopword set, the lemma table and all compiled patterns. Built once at
// startup and handed to each engine; nothing here mutates after construction,
// so concurrent engines can read it freely.
type Resources struct {
	stopwords map[string]struct{}
	lemmas    map[string]string

	tokenPattern    *regexp.Regexp
	vmIDPattern     *regexp.Regexp
	nodePattern     *regexp.Regexp
	memoryPattern   *regexp.Regexp
	coresPattern    *regexp.Regexp
	diskPattern     *regexp.Regexp
	templatePattern *regexp.Regexp
	anaphoraPattern *regexp.Regexp
	therePattern    *regexp.Regexp

	spanPatterns   []spanPattern
	intentPatterns []intentPattern
}

// NewResources compiles the shared pipeline resources from explicit word
// lists. Most callers want DefaultResources; tests pass trimmed lists.
func NewResources(stopwords []string, lemmas map[string]string) *Resources {
	res := &Resources{
		stopwords: make(map[string]struct{}, len(stopwords)),
		lemmas:    make(map[string]string, len(lemmas)),

		tokenPattern:    regexp.MustCompile(`[a-z0-9]+`),
		vmIDPattern:     regexp.MustCompile(`(?i)\b(?:vm|virtual machine)\s+(\w+)`),
		nodePattern:     regexp.MustCompile(`(?i)\bnode\s+(\w+)`),
		memoryPattern:   regexp.MustCompile(`(?i)\b(\d+)\s*(tb|gb|mb|t|g|m)\b(?:\s+of)?\s+(?:ram|memory)\b`),
		coresPattern:    regexp.MustCompile(`(?i)\b(\d+)\s*(?:cpu\s+)?(?:cores?|cpus?|vcpus?|processors?)\b`),
		diskPattern:     regexp.MustCompile(`(?i)\b(\d+)\s*(tb|gb|t|g)\b(?:\s+of)?\s+(?:disk|storage|hdd|ssd)\b`),
		templatePattern: regexp.MustCompile(`(?i)\b(` + strings.Join(domain.KnownTemplates, "|") + `)\b`),
		anaphoraPattern: regexp.MustCompile(`\b(?:it|that|this|the vm|the machine|that one|this one)\b`),
		therePattern:    regexp.MustCompile(`\bthere\b`),

		spanPatterns:   defaultSpanPatterns(),
		intentPatterns: defaultIntentPatterns(),
	}

	for _, w := range stopwords {
		res.stopwords[w] = struct{}{}
	}
	for form, base := range lemmas {
		res.lemmas[form] = base
	}
	return res
}

// DefaultResources builds the stock English resources.
func DefaultResources() *Resources {
	return NewResources(defaultStopwords(), defaultLemmas())
}

// IsStopword reports whether a lowercase token is dropped during
// preprocessing.
func (r *Resources) IsStopword(tok string) bool {
	_, ok := r.stopwords[tok]
	return ok
}

// Lemma reduces a single lowercase token to its base form: the irregular
// table first, then suffix rules with doubled-consonant undo and
// minimum-length guards.
func (r *Resources) Lemma(tok string) string {
	if base, ok := r.lemmas[tok]; ok {
		return base
	}
	switch {
	case strings.HasSuffix(tok, "ing") && len(tok) > 5:
		return undoDouble(tok[:len(tok)-3])
	case strings.HasSuffix(tok, "ied") && len(tok) > 4:
		return tok[:len(tok)-3] + "y"
	case strings.HasSuffix(tok, "ed") && len(tok) > 4:
		return undoDouble(tok[:len(tok)-2])
	case strings.HasSuffix(tok, "ies") && len(tok) > 4:
		return tok[:len(tok)-3] + "y"
	case strings.HasSuffix(tok, "s") && len(tok) > 3 &&
		!strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us") && !strings.HasSuffix(tok, "is"):
		return tok[:len(tok)-1]
	}
	return tok
}

// undoDouble strips the doubled final consonant left behind by ing/ed
// stripping (stopping -> stopp -> stop). Keeps ll/ss/zz, which double
// legitimately (call, pass).
func undoDouble(stem string) string {
	n := len(stem)
	if n < 2 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'a', 'e', 'i', 'o', 'u', 'l', 's', 'z':
		return stem
	}
	return stem[:n-1]
}

// defaultStopwords is the curated English stopword list, NLTK-derived with
// a few conversational extras. The particles "on", "off", "up" and "down"
// are deliberately absent: they carry meaning in power commands.
func defaultStopwords() []string {
	return []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves",
		"you", "your", "yours", "yourself", "yourselves",
		"he", "him", "his", "himself", "she", "her", "hers", "herself",
		"it", "its", "itself", "they", "them", "their", "theirs", "themselves",
		"what", "which", "who", "whom", "this", "that", "these", "those",
		"am", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "having", "do", "does", "did", "doing",
		"a", "an", "the", "and", "but", "if", "or", "because", "as",
		"until", "while", "of", "at", "by", "for", "with", "about",
		"against", "between", "into", "through", "during", "before",
		"after", "above", "below", "to", "from", "in", "out", "over",
		"under", "again", "further", "then", "once", "here", "there",
		"when", "where", "why", "how", "all", "any", "both", "each",
		"few", "more", "most", "other", "some", "such", "no", "nor",
		"not", "only", "own", "same", "so", "than", "too", "very",
		"s", "t", "can", "will", "just", "don", "should", "now",
		"d", "ll", "m", "o", "re", "ve", "y",
		"ain", "aren", "couldn", "didn", "doesn", "hadn", "hasn",
		"haven", "isn", "ma", "mightn", "mustn", "needn", "shan",
		"shouldn", "wasn", "weren", "won", "wouldn",
		"could", "would", "please",
	}
}

// defaultLemmas is the irregular-form table for the domain vocabulary the
// suffix rules get wrong (silent-e verbs, short plurals).
func defaultLemmas() map[string]string {
	return map[string]string{
		"vms":       "vm",
		"machines":  "machine",
		"creating":  "create",
		"created":   "create",
		"creates":   "create",
		"deleting":  "delete",
		"deleted":   "delete",
		"deletes":   "delete",
		"stopped":   "stop",
		"stopping":  "stop",
		"running":   "run",
		"ran":       "run",
		"using":     "use",
		"used":      "use",
		"uses":      "use",
		"statuses":  "status",
		"rebooting": "reboot",
		"shutting":  "shut",
	}
}
