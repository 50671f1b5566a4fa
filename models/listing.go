package models

import "time"

// Listing is one observed apartment listing as shown on the StuyTown page.
// Text fields hold the raw display text; price is deliberately not parsed
// to a number.
type Listing struct {
	Address      string    `json:"address"`
	Price        string    `json:"price"`
	Bedrooms     string    `json:"bedrooms"`
	Availability string    `json:"availability"`
	DiscoveredAt time.Time `json:"discovered_at"`
	URL          string    `json:"url"`
}

// Valid reports whether the listing carries both required fields. Invalid
// listings must never be stored or diffed.
func (l *Listing) Valid() bool {
	return l.Address != "" && l.Price != ""
}

// KnownState maps a listing address to the most recent observation of that
// listing. The address is the natural key: two observations with the same
// address are the same listing, and the later one wins.
type KnownState map[string]*Listing
