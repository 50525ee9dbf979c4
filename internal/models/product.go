package models

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

// Status is the normalized availability of a product card.
type Status string

const (
	StatusInStock Status = "in stock"
	StatusSoldOut Status = "sold out"
	StatusOrdered Status = "ordered"
	StatusUnknown Status = "unknown"
)

// ParseStatus normalizes free text ("In Stock", " in stock ") into a Status.
// Unrecognized text becomes StatusUnknown.
func ParseStatus(text string) Status {
	switch Status(strings.ToLower(strings.Join(strings.Fields(text), " "))) {
	case StatusInStock:
		return StatusInStock
	case StatusSoldOut:
		return StatusSoldOut
	case StatusOrdered:
		return StatusOrdered
	default:
		return StatusUnknown
	}
}

// Equal compares two statuses ignoring case and surrounding whitespace.
func (s Status) Equal(other Status) bool {
	return ParseStatus(string(s)) == ParseStatus(string(other))
}

func (s Status) String() string {
	return string(s)
}

// Value implements the driver.Valuer interface so a Status is stored as normalized text.
func (s Status) Value() (driver.Value, error) {
	return string(ParseStatus(string(s))), nil
}

// Scan implements the sql.Scanner interface.
func (s *Status) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StatusUnknown
	case []byte:
		*s = ParseStatus(string(v))
	case string:
		*s = ParseStatus(v)
	default:
		return errors.New("unsupported type for Status")
	}
	return nil
}

// ProductSnapshot is one product card as seen on the listing during a single poll.
type ProductSnapshot struct {
	Title  string
	Href   string // absolute URL, empty when the card has no link
	Status Status
}

// ItemRecord is the last known state of a product, keyed by title.
type ItemRecord struct {
	ID            int64     `db:"id" json:"-"`
	Title         string    `db:"title" json:"title"`
	Status        Status    `db:"status" json:"status"`
	LastCheckedAt time.Time `db:"last_checked" json:"last_checked"`
}

// ProductDetails is what the order workflow could read from the detail view.
type ProductDetails struct {
	Title     string
	Href      string
	PriceText string
	Price     float64
	HasPrice  bool
	ImageURL  string
}
