// Package guests provides guest and event data access. The engine reads this
// data through protocol.GuestStore; the file store serves deployments where
// the guest list is maintained as JSON documents, one per event.
package guests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/convoca/convoca/pkg/models"
)

// ErrEventNotFound is returned when no document exists for the event.
var ErrEventNotFound = errors.New("event not found")

// eventDocument is the on-disk shape: the event date plus its guest list.
type eventDocument struct {
	ID     string               `json:"id"`
	Name   string               `json:"name,omitempty"`
	Date   time.Time            `json:"date"`
	Guests []models.GuestRecord `json:"guests"`
}

// FileStore implements protocol.GuestStore over a directory of event
// documents (events/<event-id>.json).
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.Replace(root, "file://", "", 1)}
}

func (s *FileStore) Guests(_ context.Context, eventID string) ([]models.GuestRecord, error) {
	doc, err := s.load(eventID)
	if err != nil {
		return nil, err
	}

	for i := range doc.Guests {
		if doc.Guests[i].EventID == "" {
			doc.Guests[i].EventID = eventID
		}
	}

	return doc.Guests, nil
}

func (s *FileStore) EventDate(_ context.Context, eventID string) (time.Time, error) {
	doc, err := s.load(eventID)
	if err != nil {
		return time.Time{}, err
	}

	return doc.Date, nil
}

// SaveEvent writes one event document. Used by fixtures and the API's event
// seeding endpoint.
func (s *FileStore) SaveEvent(_ context.Context, id string, name string, date time.Time, guests []models.GuestRecord) error {
	path := s.path(id)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(eventDocument{ID: id, Name: name, Date: date, Guests: guests}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", id, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (s *FileStore) load(eventID string) (*eventDocument, error) {
	data, err := os.ReadFile(s.path(eventID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}

		return nil, fmt.Errorf("failed to read event %s: %w", eventID, err)
	}

	var doc eventDocument

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", eventID, err)
	}

	return &doc, nil
}

func (s *FileStore) path(eventID string) string {
	return filepath.Join(s.root, "events", eventID+".json")
}
