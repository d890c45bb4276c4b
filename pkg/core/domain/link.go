package domain

import (
	"net/http"
	"time"
)

// Link represents a shortened URL. The shortcode is its identity and never changes.
type Link struct {
	Shortcode       string     `json:"shortcode"`
	URL             string     `json:"url"`
	Description     string     `json:"description"`
	RedirectType    int        `json:"redirect_type"`
	Tags            []string   `json:"tags"` // Handled as JSON text in SQLite
	Archived        bool       `json:"archived"`
	ActivatesAt     *time.Time `json:"activates_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	PasswordEnabled bool       `json:"password_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	Clicks          int64      `json:"clicks"`
	LastClicked     *time.Time `json:"last_clicked,omitempty"`
}

const DefaultRedirectType = http.StatusFound

// ValidRedirectType reports whether code is one of 301, 302, 307 or 308.
func ValidRedirectType(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Availability checks whether the link may be followed at the given moment.
// It returns nil, ErrLinkInactive or ErrPasswordProtected.
func (l *Link) Availability(now time.Time) error {
	if l.Archived || l.DeletedAt != nil {
		return ErrLinkInactive
	}
	if l.ActivatesAt != nil && now.Before(*l.ActivatesAt) {
		return ErrLinkInactive
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return ErrLinkInactive
	}
	if l.PasswordEnabled {
		return ErrPasswordProtected
	}
	return nil
}
