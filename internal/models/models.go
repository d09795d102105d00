package models

import "time"

// ChatKind distinguishes where an archived message came from.
type ChatKind string

const (
	ChatKindGroup   ChatKind = "group"
	ChatKindChannel ChatKind = "channel"
)

// BriefingMode selects how recent history is windowed for a briefing.
type BriefingMode string

const (
	// ModeWindow24h takes every message from the last 24 hours,
	// however many there are.
	ModeWindow24h BriefingMode = "24h"
	// ModeLast100 takes the 100 most recent messages regardless of age.
	ModeLast100 BriefingMode = "last100"
)

const (
	BriefingWindow = 24 * time.Hour
	BriefingLimit  = 100
)

// Message is a single archived chat message. Records are immutable once
// stored; the archiver is the only writer.
type Message struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	ChatName  string    `json:"chat_name" bson:"chat_name"`
	ChatID    int64     `json:"chat_id,omitempty" bson:"chat_id,omitempty"`
	ChatKind  ChatKind  `json:"chat_kind" bson:"chat_kind"`
	Sender    string    `json:"sender" bson:"sender"`
	Content   string    `json:"content" bson:"content"`
	Label     string    `json:"label" bson:"label"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Chat is a group or channel the bot currently participates in.
type Chat struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Kind  ChatKind `json:"kind"`
}
