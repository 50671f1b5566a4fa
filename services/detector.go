package services

import (
	"stuytown-watcher/models"
	"stuytown-watcher/utils"
)

// Detector classifies freshly extracted listings against the previously
// known state.
type Detector struct {
	logger *utils.Logger
}

// NewDetector creates a Detector with the given logger.
func NewDetector(logger *utils.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect returns the listings of current whose address was absent from
// previous, in current order, plus the merged state that fully replaces
// previous. Addresses in previous but not in current are dropped: a
// listing that left the page is forgotten, and will be reported as new
// again if it reappears.
//
// Duplicate addresses within one pass resolve last-write-wins in the
// merged state; each occurrence is still classified independently.
func (d *Detector) Detect(current []*models.Listing, previous models.KnownState) ([]*models.Listing, models.KnownState) {
	merged := make(models.KnownState, len(current))
	var newItems []*models.Listing

	for _, l := range current {
		if _, dup := merged[l.Address]; dup {
			d.logger.Debug("[detector] Duplicate address in one pass, later entry wins: %s", l.Address)
		}
		merged[l.Address] = l

		if _, known := previous[l.Address]; !known {
			newItems = append(newItems, l)
			d.logger.Info("[detector] New listing found: %s - %s", l.Address, l.Price)
		}
	}

	return newItems, merged
}
