// Package feed defines the feed item value cached by the feed cache store.
package feed

import (
	"net/url"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/feedcache/internal/platform/errors"
)

var (
	// ErrMissingID indicates an item without an identifier.
	ErrMissingID = apperrors.New(apperrors.CodeInvalidItem, "item id is required")
	// ErrMissingURL indicates an item without a locator.
	ErrMissingURL = apperrors.New(apperrors.CodeInvalidItem, "item url is required")
	// ErrInvalidURL indicates a locator whose text form does not parse back.
	ErrInvalidURL = apperrors.New(apperrors.CodeInvalidItem, "item url is invalid")
)

// Item is one feed entry. Description and Location are optional and stay nil
// when absent.
type Item struct {
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         *url.URL
}

// Validate reports whether the item carries its required fields.
func (i Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrMissingID
	}
	if i.URL == nil {
		return ErrMissingURL
	}
	text := i.URL.String()
	if text == "" {
		return ErrMissingURL
	}
	// Items are stored by their text form and must read back.
	if _, err := url.Parse(text); err != nil {
		return ErrInvalidURL
	}
	return nil
}

// Text returns a pointer to value, for populating optional item fields.
func Text(value string) *string {
	return &value
}
