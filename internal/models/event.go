package models

import "time"

// EventKind classifies an in-app log entry.
type EventKind string

const (
	KindInfo     EventKind = "info"
	KindInStock  EventKind = "in-stock"
	KindError    EventKind = "error"
	KindFinished EventKind = "finished"
)

// EventProduct is the product card attached to an in-app event.
type EventProduct struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
	Price    string `json:"price,omitempty"`
	Href     string `json:"href,omitempty"`
}

// Event is one entry of the in-app log.
type Event struct {
	ID                 string        `json:"id,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
	Kind               EventKind     `json:"kind"`
	Text               string        `json:"text"`
	Product            *EventProduct `json:"product,omitempty"`
	InteractiveOptions []string      `json:"interactive_options,omitempty"`
}
