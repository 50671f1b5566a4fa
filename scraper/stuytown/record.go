package stuytown

import (
	"strings"
	"time"

	"stuytown-watcher/models"
)

// unknownField is stored for optional fields the page did not render.
const unknownField = "Unknown"

// card is the raw per-field text pulled from one listing container. Empty
// strings mark fields that were absent or unreadable.
type card struct {
	Bedrooms     string `json:"bedrooms"`
	Address      string `json:"address"`
	Availability string `json:"availability"`
	Price        string `json:"price"`
	Link         string `json:"link"`
}

// buildRecord applies the per-field fallback policy and the validity
// invariant to one raw container. It returns nil when either required
// field (address, price) is missing: such containers never become partial
// records.
func buildRecord(c card, indexURL, origin string, now time.Time) *models.Listing {
	address := strings.TrimSpace(c.Address)
	price := strings.TrimSpace(c.Price)
	if address == "" || price == "" {
		return nil
	}

	return &models.Listing{
		Address:      address,
		Price:        price,
		Bedrooms:     fieldOr(c.Bedrooms, unknownField),
		Availability: fieldOr(c.Availability, unknownField),
		URL:          resolveLink(c.Link, indexURL, origin),
		DiscoveredAt: now,
	}
}

// fieldOr returns the trimmed raw value, or the fallback when the field
// was absent.
func fieldOr(raw, fallback string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return fallback
}

// resolveLink turns a per-item link into an absolute URL. A missing link
// falls back to the listing-index URL; a relative link is resolved against
// the site origin.
func resolveLink(link, indexURL, origin string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return indexURL
	}
	if !strings.HasPrefix(link, "http") {
		return origin + link
	}
	return link
}
