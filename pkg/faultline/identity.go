// identity.go provides the default uuid-backed identity provider.

package faultline

import (
	"strings"

	"github.com/google/uuid"
)

// uuidIdentity mints session ids from random UUIDs and holds a fixed
// installation id for the process lifetime.
type uuidIdentity struct {
	installationID string
}

// NewIdentityProvider returns an IdentityProvider backed by random UUIDs.
// Session ids are uppercase hex without separators so they are safe as
// file names on every platform the store may run on.
func NewIdentityProvider() IdentityProvider {
	return &uuidIdentity{
		installationID: uuid.NewString(),
	}
}

// SessionID mints a new session identifier.
func (p *uuidIdentity) SessionID() string {
	id := uuid.NewString()
	return strings.ToUpper(strings.ReplaceAll(id, "-", ""))
}

// InstallationID returns the identifier fixed at construction.
func (p *uuidIdentity) InstallationID() string {
	return p.installationID
}
