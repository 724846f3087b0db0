package nli

import (
	"strconv"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

// Extractor pulls structured entities out of the raw utterance. It never
// sees the preprocessed form: guest IDs, size units and pronouns survive
// only in the original text.
type Extractor struct {
	res *Resources
	rec *Recognizer
}

// NewExtractor creates an extractor over shared language resources.
func NewExtractor(res *Resources) *Extractor {
	return &Extractor{res: res, rec: NewRecognizer(res)}
}

// Extract runs the fixed extraction order: recognizer spans, explicit VM
// and node references, creation parameters, then pronoun resolution from
// the conversation context. Absent matches simply omit keys; Extract never
// fails.
func (e *Extractor) Extract(text string, convCtx *ConversationContext) domain.EntityMap {
	entities := domain.NewEntityMap()
	lower := strings.ToLower(text)

	for _, span := range e.rec.Recognize(text) {
		entities.Set(span.Label, span.Text)
	}

	if m := e.res.vmIDPattern.FindStringSubmatch(text); len(m) > 1 {
		entities.Set(domain.EntityVMID, m[1])
	}
	if m := e.res.nodePattern.FindStringSubmatch(text); len(m) > 1 {
		entities.Set(domain.EntityNode, m[1])
	}

	if strings.Contains(lower, "create") &&
		(strings.Contains(lower, "vm") || strings.Contains(lower, "virtual machine")) {
		entities.Params = e.extractCreateParams(text)
	}

	// Pronouns resolve against the context only when nothing explicit was
	// found in this utterance.
	if convCtx != nil {
		if !entities.Has(domain.EntityVMID) && convCtx.CurrentVM != "" &&
			e.res.anaphoraPattern.MatchString(lower) {
			entities.Set(domain.EntityVMID, convCtx.CurrentVM)
		}
		if !entities.Has(domain.EntityNode) && convCtx.CurrentNode != "" &&
			e.res.therePattern.MatchString(lower) {
			entities.Set(domain.EntityNode, convCtx.CurrentNode)
		}
	}

	return entities
}

// extractCreateParams runs the four independent parameter regexes over the
// raw text. Fields left at zero mean the utterance did not specify them;
// the dispatcher fills defaults.
func (e *Extractor) extractCreateParams(text string) *domain.CreateParams {
	params := &domain.CreateParams{}

	if m := e.res.memoryPattern.FindStringSubmatch(text); len(m) > 2 {
		if amount, err := strconv.Atoi(m[1]); err == nil {
			params.MemoryMB = normalizeMemoryMB(amount, m[2])
		}
	}
	if m := e.res.coresPattern.FindStringSubmatch(text); len(m) > 1 {
		if cores, err := strconv.Atoi(m[1]); err == nil {
			params.Cores = cores
		}
	}
	if m := e.res.diskPattern.FindStringSubmatch(text); len(m) > 2 {
		if amount, err := strconv.Atoi(m[1]); err == nil {
			params.DiskGB = normalizeDiskGB(amount, m[2])
		}
	}
	if m := e.res.templatePattern.FindStringSubmatch(text); len(m) > 1 {
		params.Template = strings.ToLower(m[1])
	}

	return params
}

// normalizeMemoryMB converts an extracted memory amount to megabytes.
func normalizeMemoryMB(amount int, unit string) int {
	switch strings.ToLower(unit) {
	case "tb", "t":
		return amount * 1024 * 1024
	case "gb", "g":
		return amount * 1024
	default: // mb, m
		return amount
	}
}

// normalizeDiskGB converts an extracted disk amount to gigabytes.
func normalizeDiskGB(amount int, unit string) int {
	switch strings.ToLower(unit) {
	case "tb", "t":
		return amount * 1024
	default: // gb, g
		return amount
	}
}
