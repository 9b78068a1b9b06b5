package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
)

// Overseerr media statuses. Only partially available and available media
// are subject to retention.
const (
	MediaStatusUnknown            = 1
	MediaStatusPending            = 2
	MediaStatusProcessing         = 3
	MediaStatusPartiallyAvailable = 4
	MediaStatusAvailable          = 5
)

// Overseerr is a client of the Overseerr v1 API.
type Overseerr struct {
	*Client
	pageSize int
}

// NewOverseerr creates an Overseerr client listing pageSize requests per call.
func NewOverseerr(cfg config.ServiceConfig, pageSize int) *Overseerr {
	if pageSize <= 0 {
		pageSize = config.DefaultCatalogPageSize
	}
	return &Overseerr{Client: NewClient("overseerr", cfg), pageSize: pageSize}
}

type overseerrCount struct {
	Total int `json:"total"`
}

type overseerrPage struct {
	PageInfo struct {
		Pages   int `json:"pages"`
		Results int `json:"results"`
	} `json:"pageInfo"`
	Results []overseerrRequest `json:"results"`
}

type overseerrRequest struct {
	ID          int       `json:"id"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	RequestedBy struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
	} `json:"requestedBy"`
	Media struct {
		ID                int `json:"id"`
		Status            int `json:"status"`
		ExternalServiceID int `json:"externalServiceId"`
	} `json:"media"`
	Seasons []struct {
		SeasonNumber int `json:"seasonNumber"`
	} `json:"seasons"`
}

// RequestCount returns the total number of requests known to Overseerr.
func (o *Overseerr) RequestCount(ctx context.Context) (int, error) {
	var count overseerrCount
	if err := o.get(ctx, "/api/v1/request/count", nil, &count); err != nil {
		return 0, o.wrap("request_count", "request count", "", err)
	}
	return count.Total, nil
}

// ListRequests pages through every request and returns those whose media is
// partially or fully available and already known to Radarr or Sonarr.
func (o *Overseerr) ListRequests(ctx context.Context) ([]loans.CatalogRequest, error) {
	total, err := o.RequestCount(ctx)
	if err != nil {
		return nil, err
	}

	requests := make([]loans.CatalogRequest, 0, total)
	for skip := 0; skip < total; skip += o.pageSize {
		query := url.Values{
			"take": {strconv.Itoa(o.pageSize)},
			"skip": {strconv.Itoa(skip)},
		}

		var page overseerrPage
		if err := o.get(ctx, "/api/v1/request", query, &page); err != nil {
			return nil, o.wrap("list_requests", "request page", skip, err)
		}
		o.logger.DebugContext(ctx, "fetched request page", "skip", skip, "count", len(page.Results))

		for _, r := range page.Results {
			req, ok := o.convert(ctx, r)
			if ok {
				requests = append(requests, req)
			}
		}
		if len(page.Results) == 0 {
			break
		}
	}

	o.logger.InfoContext(ctx, "listed requests", "total", total, "eligible", len(requests))
	return requests, nil
}

func (o *Overseerr) convert(ctx context.Context, r overseerrRequest) (loans.CatalogRequest, bool) {
	if r.Media.Status != MediaStatusPartiallyAvailable && r.Media.Status != MediaStatusAvailable {
		return loans.CatalogRequest{}, false
	}

	mediaType := loans.MediaType(r.Type)
	if !mediaType.Valid() {
		o.logger.WarnContext(ctx, "skipping request with unknown media type", "request", r.ID, "type", r.Type)
		return loans.CatalogRequest{}, false
	}
	if r.Media.ExternalServiceID == 0 {
		o.logger.DebugContext(ctx, "skipping request not yet linked to a media service", "request", r.ID)
		return loans.CatalogRequest{}, false
	}

	req := loans.CatalogRequest{
		RequestID:   r.ID,
		MediaType:   mediaType,
		MediaID:     r.Media.ID,
		ServiceID:   r.Media.ExternalServiceID,
		RequestedBy: r.RequestedBy.Email,
		RequestedAt: r.CreatedAt.UTC(),
	}
	for _, s := range r.Seasons {
		req.Seasons = append(req.Seasons, s.SeasonNumber)
	}
	return req, true
}

// DeleteRequest removes a request.
func (o *Overseerr) DeleteRequest(ctx context.Context, requestID int) error {
	err := o.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/request/%d", requestID), nil, nil, nil)
	return o.wrap("delete_request", "request", requestID, err)
}

// DeleteMedia removes a media entry, resetting its availability so it can
// be requested again.
func (o *Overseerr) DeleteMedia(ctx context.Context, mediaID int) error {
	err := o.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/media/%d", mediaID), nil, nil, nil)
	return o.wrap("delete_media", "media", mediaID, err)
}

// Ping checks that Overseerr answers with the configured API key.
func (o *Overseerr) Ping(ctx context.Context) error {
	return o.ping(ctx, "/api/v1/status")
}
