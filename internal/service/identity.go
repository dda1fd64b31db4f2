// Package service holds the business rules of the application. Handlers
// translate HTTP into calls on these services and render whatever comes back.
package service

import "storyline/internal/models"

// Identity is the authenticated caller. It is passed explicitly into every
// call that acts on behalf of a user.
type Identity struct {
	UserID   uint
	Username string
}

// Anonymous reports whether no user is logged in.
func (i Identity) Anonymous() bool {
	return i.UserID == 0
}

// IdentityOf builds the identity of a loaded user.
func IdentityOf(u *models.User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{UserID: u.ID, Username: u.Username}
}

// requireIdentity rejects anonymous callers of mutating operations.
func requireIdentity(id Identity) error {
	if id.Anonymous() {
		return models.NewUnauthorizedError("Please log in to access this page.")
	}
	return nil
}

// authorize enforces that only the author of an entity may change it.
func authorize(id Identity, authorID uint) error {
	if id.UserID != authorID {
		return models.NewForbiddenError("You are not the author of this content")
	}
	return nil
}
