package domain

import "context"

const GuestName = "Guest"

// Identity is the resolved user behind a connection. It is embedded by value
// into messages and meeting participant records, never stored on its own.
type Identity struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// GuestIdentity is the identity a connection carries until something better
// is resolved. The connection id doubles as the user id.
func GuestIdentity(connectionID string) Identity {
	return Identity{ID: connectionID, Name: GuestName}
}

func (i Identity) IsZero() bool {
	return i.ID == "" && i.Name == ""
}

// IdentityVerifier turns a bearer credential into an Identity. A nil result
// with a nil error means the credential did not verify; resolution failure is
// never fatal to the connection.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}
