package maintenance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/feedcache/internal/feed"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage"
)

// generationDocument is the JSON shape accepted by -load and printed by
// -show -json.
type generationDocument struct {
	Found     *bool          `json:"found,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Items     []itemDocument `json:"items"`
}

type itemDocument struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	URL         string  `json:"url"`
}

func documentFromRetrieval(retrieval storage.Retrieval) generationDocument {
	found := retrieval.Found
	doc := generationDocument{Found: &found, Items: []itemDocument{}}
	if !retrieval.Found {
		return doc
	}
	timestamp := retrieval.Timestamp
	doc.Timestamp = &timestamp
	for _, item := range retrieval.Items {
		doc.Items = append(doc.Items, itemDocument{
			ID:          item.ID.String(),
			Description: item.Description,
			Location:    item.Location,
			URL:         item.URL.String(),
		})
	}
	return doc
}

// decodeGeneration reads a generation document. A missing timestamp is
// filled from now.
func decodeGeneration(r io.Reader, now time.Time) (storage.Generation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Generation{}, fmt.Errorf("read generation: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var doc generationDocument
	if err := decoder.Decode(&doc); err != nil {
		return storage.Generation{}, fmt.Errorf("decode generation: %w", err)
	}

	generation := storage.Generation{
		Items:     make([]feed.Item, 0, len(doc.Items)),
		Timestamp: now,
	}
	if doc.Timestamp != nil {
		generation.Timestamp = *doc.Timestamp
	}
	for i, entry := range doc.Items {
		item, err := entry.domain()
		if err != nil {
			return storage.Generation{}, fmt.Errorf("item %d: %w", i, err)
		}
		generation.Items = append(generation.Items, item)
	}
	return generation, nil
}

func (d itemDocument) domain() (feed.Item, error) {
	id, err := uuid.Parse(strings.TrimSpace(d.ID))
	if err != nil {
		return feed.Item{}, fmt.Errorf("parse id: %w", err)
	}
	rawURL := strings.TrimSpace(d.URL)
	if rawURL == "" {
		return feed.Item{}, feed.ErrMissingURL
	}
	link, err := url.Parse(rawURL)
	if err != nil {
		return feed.Item{}, fmt.Errorf("parse url: %w", err)
	}
	item := feed.Item{
		ID:          id,
		Description: d.Description,
		Location:    d.Location,
		URL:         link,
	}
	if err := item.Validate(); err != nil {
		return feed.Item{}, err
	}
	return item, nil
}
