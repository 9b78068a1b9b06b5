package loans

import (
	"context"
	"time"
)

// CatalogRequest is a request as reported by the media catalog.
type CatalogRequest struct {
	RequestID   int       `json:"request_id"`
	MediaType   MediaType `json:"media_type"`
	MediaID     int       `json:"media_id"`
	ServiceID   int       `json:"service_id"` // Radarr movie id or Sonarr series id
	Seasons     []int     `json:"seasons,omitempty"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// Media is the resolved availability of a catalog request.
type Media struct {
	Title          string     `json:"title"`
	Available      bool       `json:"available"`
	AvailableSince *time.Time `json:"available_since,omitempty"`
	SizeOnDisk     int64      `json:"size_on_disk"`
	PosterURL      string     `json:"poster_url,omitempty"`
}

// Catalog lists requests and resolves their media.
type Catalog interface {
	// ListRequests returns the requests eligible for retention. A failure
	// aborts the whole run.
	ListRequests(ctx context.Context) ([]CatalogRequest, error)

	// ResolveMedia returns the availability of one request.
	ResolveMedia(ctx context.Context, req CatalogRequest) (*Media, error)
}

// Deleter removes the files of an expired request from downstream systems.
type Deleter interface {
	Delete(ctx context.Context, req CatalogRequest) error
}

// Reminder is the content of a reminder notification.
type Reminder struct {
	Request   *Request
	Media     *Media
	DaysLeft  int
	DeleteOn  time.Time
	ExtendURL string
}

// DeletionNotice is the content of a deletion notification.
type DeletionNotice struct {
	Request *Request
	Media   *Media
}

// Notifier dispatches notifications to requesters.
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
	SendDeletionNotice(ctx context.Context, n DeletionNotice) error
}
