// Package identity receives account lifecycle events from the external
// identity provider and mirrors them into the local user store.
package identity

import (
	"encoding/json"
	"fmt"
)

// EventType is the provider's event discriminator.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// Event is a verified, decoded provider event.
type Event struct {
	Type EventType
	User AccountData
}

// AccountData is the provider's account payload, flattened to the
// fields the local mirror keeps.
type AccountData struct {
	ExternalID string
	Email      string
	Name       string
	ImageURL   string
}

type rawEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rawAccount struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	Emails    []struct {
		Address string `json:"email_address"`
	} `json:"email_addresses"`
}

// decodeEvent parses a verified payload into an Event. Unknown event
// types decode with their type preserved so callers can skip them.
func decodeEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("identity: decode event: %w", err)
	}
	ev := &Event{Type: raw.Type}
	if len(raw.Data) == 0 {
		return ev, nil
	}
	var acct rawAccount
	if err := json.Unmarshal(raw.Data, &acct); err != nil {
		return nil, fmt.Errorf("identity: decode account data: %w", err)
	}
	ev.User = AccountData{
		ExternalID: acct.ID,
		Name:       joinName(acct.FirstName, acct.LastName),
		ImageURL:   acct.ImageURL,
	}
	if len(acct.Emails) > 0 {
		ev.User.Email = acct.Emails[0].Address
	}
	return ev, nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
