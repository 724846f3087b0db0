package nli

import "github.com/proxmox-nli/internal/domain"

// maxHistory bounds the rolling conversation history.
const maxHistory = 5

// HistoryEntry is one processed utterance in the rolling history.
type HistoryEntry struct {
	Intent   domain.Intent    `json:"intent"`
	Entities domain.EntityMap `json:"entities"`
}

// ConversationContext is the per-session memory used to resolve pronouns:
// the VM and node currently in focus, the last classification, and a
// bounded FIFO history. One engine owns one context; it is never shared
// across sessions. The whole struct round-trips through JSON so session
// stores can persist it.
type ConversationContext struct {
	CurrentVM    string           `json:"current_vm,omitempty"`
	CurrentNode  string           `json:"current_node,omitempty"`
	LastIntent   domain.Intent    `json:"last_intent,omitempty"`
	LastEntities domain.EntityMap `json:"last_entities"`
	History      []HistoryEntry   `json:"history,omitempty"`
}

// NewContext returns an empty conversation context.
func NewContext() *ConversationContext {
	return &ConversationContext{}
}

// Update records one processed utterance. Called exactly once per
// utterance, unconditionally, even for unknown intents. Focus moves only
// when this utterance carried the respective entity; the history evicts
// its oldest entry beyond maxHistory.
func (c *ConversationContext) Update(intent domain.Intent, entities domain.EntityMap) {
	c.LastIntent = intent
	c.LastEntities = entities

	if vm, ok := entities.VMID(); ok {
		c.CurrentVM = vm
	}
	if node, ok := entities.Node(); ok {
		c.CurrentNode = node
	}

	c.History = append(c.History, HistoryEntry{Intent: intent, Entities: entities})
	if len(c.History) > maxHistory {
		c.History = c.History[len(c.History)-maxHistory:]
	}
}

// Reset clears the conversation, keeping the struct usable.
func (c *ConversationContext) Reset() {
	*c = ConversationContext{}
}
