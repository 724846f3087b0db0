// Package nli implements the natural-language pipeline of the console:
// preprocessing, entity extraction, intent classification and per-session
// conversation context, tied together by the Engine.
package nli

import (
	"context"
	"time"

	"github.com/proxmox-nli/internal/domain"
)

// Dispatcher routes a classified intent to exactly one Proxmox operation.
type Dispatcher interface {
	Execute(ctx context.Context, intent domain.Intent, captured []string, entities domain.EntityMap) domain.CommandResult
}

// Responder renders a command result as a natural-language reply.
type Responder interface {
	Generate(intent domain.Intent, result domain.CommandResult) string
}

// Exchange is everything the pipeline produced for one utterance.
type Exchange struct {
	Input    string               `json:"input"`
	Intent   domain.Intent        `json:"intent"`
	Captured []string             `json:"captured,omitempty"`
	Entities domain.EntityMap     `json:"entities"`
	Result   domain.CommandResult `json:"result"`
	Reply    string               `json:"reply"`
	Elapsed  time.Duration        `json:"elapsed"`
}

// Engine drives the full pipeline for one logical session. It owns that
// session's ConversationContext and must not be shared across sessions;
// the Resources value behind it is immutable and shared by all engines.
type Engine struct {
	pre        *Preprocessor
	extractor  *Extractor
	classifier *Classifier
	context    *ConversationContext
	dispatcher Dispatcher
	responder  Responder
}

// NewEngine builds an engine over shared resources and the given
// dispatcher and responder collaborators.
func NewEngine(res *Resources, dispatcher Dispatcher, responder Responder) *Engine {
	return &Engine{
		pre:        NewPreprocessor(res),
		extractor:  NewExtractor(res),
		classifier: NewClassifier(res),
		context:    NewContext(),
		dispatcher: dispatcher,
		responder:  responder,
	}
}

// Process runs one utterance through the pipeline: normalize, extract
// entities from the raw text, classify the normalized form, update the
// conversation context, dispatch, and render the reply. Failures surface
// in the reply; Process itself never fails.
func (e *Engine) Process(ctx context.Context, text string) Exchange {
	start := time.Now()

	normalized := e.pre.Normalize(text)
	entities := e.extractor.Extract(text, e.context)
	intent, captured := e.classifier.Classify(normalized, e.context)
	e.context.Update(intent, entities)

	result := e.dispatcher.Execute(ctx, intent, captured, entities)
	reply := e.responder.Generate(intent, result)

	return Exchange{
		Input:    text,
		Intent:   intent,
		Captured: captured,
		Entities: entities,
		Result:   result,
		Reply:    reply,
		Elapsed:  time.Since(start),
	}
}

// Context exposes the session's conversation state.
func (e *Engine) Context() *ConversationContext {
	return e.context
}

// SetContext replaces the conversation state, used when a session store
// rehydrates an engine.
func (e *Engine) SetContext(c *ConversationContext) {
	if c == nil {
		c = NewContext()
	}
	e.context = c
}

// Reset clears the conversation context for this session.
func (e *Engine) Reset() {
	e.context.Reset()
}
