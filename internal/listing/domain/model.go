package domain

import (
	"fmt"
	"time"
)

type ListingStatus string

const (
	StatusNew              ListingStatus = "new"
	StatusContacted        ListingStatus = "contacted"
	StatusViewingScheduled ListingStatus = "viewing_scheduled"
	StatusVisited          ListingStatus = "visited"
	StatusRejected         ListingStatus = "rejected"
	StatusFavorite         ListingStatus = "favorite"
)

// IsValid checks if the ListingStatus is one of the defined constants.
func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusViewingScheduled, StatusVisited, StatusRejected, StatusFavorite:
		return true
	}
	return false
}

type Address struct {
	Street string   `json:"street"`
	City   string   `json:"city"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

type Reminder struct {
	Date string `json:"date"` // YYYY-MM-DD
	Note string `json:"note,omitempty"`
}

// Due reports whether the reminder date is on or before day.
func (r Reminder) Due(day time.Time) bool {
	d, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return false
	}
	y, m, dd := day.Date()
	return !d.After(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC))
}

// Listing is one tracked apartment. Images is ordered; the first entry is
// the cover image.
type Listing struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Address    Address         `json:"address"`
	Price      int64           `json:"price"`
	Rooms      string          `json:"rooms"`
	Phone      string          `json:"phone"`
	Link       string          `json:"link"`
	Status     ListingStatus   `json:"status"`
	CreatedAt  int64           `json:"createdAt"` // epoch millis
	Images     []ImageRef      `json:"images"`
	Floor      *int            `json:"floor,omitempty"`
	Amenities  map[string]bool `json:"amenities,omitempty"`
	Rating     *int            `json:"rating,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Reminder   *Reminder       `json:"reminder,omitempty"`
	EntryMonth string          `json:"entryMonth,omitempty"`
}

func (l *Listing) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidListingData)
	}
	if l.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidListingData)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListingData, l.Status)
	}
	if l.Rating != nil && (*l.Rating < 1 || *l.Rating > 10) {
		return fmt.Errorf("%w: rating must be between 1 and 10", ErrInvalidListingData)
	}
	if l.Reminder != nil {
		if _, err := time.Parse(time.DateOnly, l.Reminder.Date); err != nil {
			return fmt.Errorf("%w: reminder date %q", ErrInvalidListingData, l.Reminder.Date)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (l Listing) Clone() Listing {
	out := l
	if l.Images != nil {
		out.Images = make([]ImageRef, len(l.Images))
		copy(out.Images, l.Images)
	}
	if l.Amenities != nil {
		out.Amenities = make(map[string]bool, len(l.Amenities))
		for k, v := range l.Amenities {
			out.Amenities[k] = v
		}
	}
	if l.Floor != nil {
		f := *l.Floor
		out.Floor = &f
	}
	if l.Rating != nil {
		r := *l.Rating
		out.Rating = &r
	}
	if l.Reminder != nil {
		r := *l.Reminder
		out.Reminder = &r
	}
	if l.Address.Lat != nil {
		v := *l.Address.Lat
		out.Address.Lat = &v
	}
	if l.Address.Lng != nil {
		v := *l.Address.Lng
		out.Address.Lng = &v
	}
	return out
}

// Collection is the full ordered set of listings, synchronized as one document.
type Collection []Listing

func (c Collection) Find(id string) (int, bool) {
	for i := range c {
		if c[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

// WithoutInline drops inline payloads, which must never reach the durable
// document, along with malformed entries that would carry one back.
func (c Collection) WithoutInline() Collection {
	out := c.Clone()
	for i := range out {
		kept := out[i].Images[:0]
		for _, ref := range out[i].Images {
			if ref.Durable() {
				kept = append(kept, ref)
			}
		}
		out[i].Images = kept
	}
	return out
}

// StripImages drops every image reference list and keeps the rest of each
// record. Used when the local cache is over quota.
func (c Collection) StripImages() Collection {
	out := c.Clone()
	for i := range out {
		out[i].Images = []ImageRef{}
	}
	return out
}
