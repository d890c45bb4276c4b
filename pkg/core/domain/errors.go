package domain

import "errors"

var (
	ErrLinkNotFound      = errors.New("link not found")
	ErrLinkInactive      = errors.New("link is not active")
	ErrPasswordProtected = errors.New("link is password protected")
	ErrShortcodeTaken    = errors.New("shortcode already exists")
	ErrInvalidLink       = errors.New("invalid link")

	ErrCollectionNotFound = errors.New("collection not found")
	ErrSlugTaken          = errors.New("slug already exists")

	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidDimension = errors.New("unknown dimension")
	ErrInvalidFormat    = errors.New("unsupported export format")
)
