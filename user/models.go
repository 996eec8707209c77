// Package user holds the local mirror of identity provider accounts.
package user

import (
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

// User is a local projection of an account owned by the external
// identity provider. ExternalID is the provider's identifier and is the
// join key for sync events; ID is the local identifier everything else
// references.
type User struct {
	types.Entity
	ID         id.UserID `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}
