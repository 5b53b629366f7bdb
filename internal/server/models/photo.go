package models

import "time"

// Visibility is the per-photo access class.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is one of the three known classes.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

// Photo is a stored photo record. The object body lives in S3 under
// StorageKey; the row is the source of truth for existence. Lat and Lng are
// always both set or both nil.
type Photo struct {
	ID          string
	UserID      string
	StorageKey  string
	MimeType    string
	SizeBytes   int64
	Title       *string
	Description *string
	Lat         *float64
	Lng         *float64
	AccuracyM   *float64
	Address     *string
	Exif        map[string]any
	Visibility  Visibility
	TakenAt     *time.Time
	CreatedAt   time.Time
}

// PhotoUpdate lists the owner-editable fields; nil means "leave unchanged".
type PhotoUpdate struct {
	Title       *string
	Description *string
	Visibility  *Visibility
	Address     *string
}
