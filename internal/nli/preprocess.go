package nli

import "strings"

// Preprocessor normalizes a raw utterance into the lowercase, stopword-free,
// lemmatized form the intent table matches against. Pure function over the
// resources held by the instance; entity extraction never sees this form.
type Preprocessor struct {
	res *Resources
}

// NewPreprocessor creates a preprocessor over shared language resources.
func NewPreprocessor(res *Resources) *Preprocessor {
	return &Preprocessor{res: res}
}

// Normalize lowercases, tokenizes into alphanumeric runs, strips stopwords
// and lemmatizes what remains, joined by single spaces. Empty and
// whitespace-only input come back as "".
func (p *Preprocessor) Normalize(text string) string {
	tokens := p.res.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return ""
	}

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if p.res.IsStopword(tok) {
			continue
		}
		kept = append(kept, p.res.Lemma(tok))
	}
	return strings.Join(kept, " ")
}
