// Package access holds the photo visibility rules shared by single-item
// fetches, listing queries, and proximity search. The same rules are
// mirrored in SQL by the photos repository; this package is the reference
// implementation and the one applied to individual rows.
package access

import "photodrop/internal/server/models"

// Viewer identifies who is reading: either an anonymous caller or an
// authenticated user. It replaces nullable user references at call sites.
type Viewer struct {
	userID        string
	authenticated bool
}

// Anonymous returns the unauthenticated viewer.
func Anonymous() Viewer {
	return Viewer{}
}

// User returns a viewer authenticated as the given user id.
func User(id string) Viewer {
	return Viewer{userID: id, authenticated: true}
}

// Authenticated reports whether the viewer carries a user identity.
func (v Viewer) Authenticated() bool {
	return v.authenticated
}

// UserID returns the authenticated user id, or "" for anonymous viewers.
func (v Viewer) UserID() string {
	return v.userID
}

// Owns reports whether the viewer is the given owner.
func (v Viewer) Owns(ownerID string) bool {
	return v.authenticated && v.userID == ownerID
}

// CanView decides read access for a direct fetch by id. Unlisted photos are
// reachable by anyone holding the link, which is the whole point of the
// class; private photos are owner-only.
func CanView(v Viewer, ownerID string, vis models.Visibility) bool {
	switch vis {
	case models.VisibilityPublic, models.VisibilityUnlisted:
		return true
	case models.VisibilityPrivate:
		return v.Owns(ownerID)
	}
	return false
}

// CanList decides whether a photo may appear in broad listing queries.
// Unlisted photos are excluded for everyone but their owner.
func CanList(v Viewer, ownerID string, vis models.Visibility) bool {
	switch vis {
	case models.VisibilityPublic:
		return true
	case models.VisibilityUnlisted, models.VisibilityPrivate:
		return v.Owns(ownerID)
	}
	return false
}

// CanViewNearby decides inclusion in proximity search results. Unlisted
// photos show up for any authenticated viewer but stay hidden from
// anonymous ones.
func CanViewNearby(v Viewer, ownerID string, vis models.Visibility) bool {
	switch vis {
	case models.VisibilityPublic:
		return true
	case models.VisibilityUnlisted:
		return v.Authenticated()
	case models.VisibilityPrivate:
		return v.Owns(ownerID)
	}
	return false
}
