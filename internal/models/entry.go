// Package models defines the bench entry document and its field types.
package models

import "strings"

// TempIDPrefix marks client-assigned identifiers of entries that have not
// been confirmed by the remote store yet.
const TempIDPrefix = "temp-"

// ImageRef is one image of an entry: either an inline data URL captured
// while offline or a durable remote URL.
type ImageRef string

// Inline reports whether the reference is an inline-encoded payload that
// still needs to be uploaded.
func (r ImageRef) Inline() bool {
	return strings.HasPrefix(string(r), "data:")
}

// Location is where the bench stands.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Entry is one bench review. Exactly one of ID and TempID identifies the
// entry's canonical location at any time: ID once the remote store has
// confirmed it, TempID while it only exists in the local queue.
type Entry struct {
	ID          string     `json:"id,omitempty"`
	TempID      string     `json:"tempId,omitempty"`
	Name        string     `json:"name"`
	Location    Location   `json:"location"`
	Ratings     Ratings    `json:"ratings"`
	Images      []ImageRef `json:"images"`
	Notes       string     `json:"notes"`
	Pending     bool       `json:"pending,omitempty"`
	DateVisited Timestamp  `json:"dateVisited"`
	CreatedAt   Timestamp  `json:"createdAt"`
	UpdatedAt   Timestamp  `json:"updatedAt"`
}

// Identity returns the entry's current canonical identifier.
func (e Entry) Identity() string {
	if e.Synced() {
		return e.ID
	}
	return e.TempID
}

// Synced reports whether the entry carries a confirmed remote identity.
func (e Entry) Synced() bool {
	return e.ID != "" && !strings.HasPrefix(e.ID, TempIDPrefix)
}

// IsTempID reports whether id is a client-assigned temporary identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
