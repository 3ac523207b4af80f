package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventClick      EventType = "click"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Results   int       `json:"results"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type ClickEvent struct {
	Type       EventType `json:"type"`
	DocumentID ident.ID  `json:"document_id"`
	Query      string    `json:"query"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}
