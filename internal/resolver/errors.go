package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"music-downloader/pkg/models"
)

// ResolutionError reports a URL that could not be expanded into songs
type ResolutionError struct {
	URL    string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying cause
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AsResolutionError extracts a ResolutionError from an error chain
func AsResolutionError(err error) (*ResolutionError, bool) {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr, true
	}
	return nil, false
}

// DownloadError reports a failed attempt to fetch one song
type DownloadError struct {
	Song      models.Song
	Transient bool
	Err       error
}

// Error implements the error interface
func (e *DownloadError) Error() string {
	name := e.Song.Title
	if name == "" {
		name = e.Song.URL
	}
	return fmt.Sprintf("download %q failed: %v", name, e.Err)
}

// Unwrap returns the underlying cause
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a fetch error is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.Transient
	}
	return false
}

var restrictedMarkers = []string{
	"private",
	"sign in",
	"login",
	"members only",
	"premium",
	"copyright",
	"video unavailable",
	"content unavailable",
	"age-restricted",
	"age restricted",
	"not available",
	"unsupported url",
	"404",
}

// IsRestrictedAccess reports whether an upstream message describes a permanent refusal
func IsRestrictedAccess(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range restrictedMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
