package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
)

// Service is the media catalog used by the job runner. It lists requests
// from Overseerr and resolves and deletes their media in Radarr or Sonarr.
type Service struct {
	overseerr *Overseerr
	radarr    *Radarr
	sonarr    *Sonarr
	logger    *slog.Logger
}

// NewService combines the three clients.
func NewService(overseerr *Overseerr, radarr *Radarr, sonarr *Sonarr) *Service {
	return &Service{
		overseerr: overseerr,
		radarr:    radarr,
		sonarr:    sonarr,
		logger:    slog.Default().With("component", "catalog"),
	}
}

// NewServiceFromConfig builds the clients from cfg.
func NewServiceFromConfig(cfg *config.Config) *Service {
	return NewService(
		NewOverseerr(cfg.Overseerr, cfg.Catalog.PageSize),
		NewRadarr(cfg.Radarr),
		NewSonarr(cfg.Sonarr),
	)
}

// ListRequests implements loans.Catalog.
func (s *Service) ListRequests(ctx context.Context) ([]loans.CatalogRequest, error) {
	return s.overseerr.ListRequests(ctx)
}

// ResolveMedia implements loans.Catalog.
func (s *Service) ResolveMedia(ctx context.Context, req loans.CatalogRequest) (*loans.Media, error) {
	switch req.MediaType {
	case loans.MediaMovie:
		return s.radarr.Movie(ctx, req.ServiceID)
	case loans.MediaTV:
		return s.sonarr.SeriesMedia(ctx, req.ServiceID, req.Seasons)
	default:
		return nil, fmt.Errorf("request %d: unsupported media type %q", req.RequestID, req.MediaType)
	}
}

// Delete implements loans.Deleter. The files are removed downstream first,
// then the request and its media entry in Overseerr. Entries already gone
// are not errors, so a partially applied deletion can be retried.
func (s *Service) Delete(ctx context.Context, req loans.CatalogRequest) error {
	var err error
	switch req.MediaType {
	case loans.MediaMovie:
		err = s.radarr.DeleteMovie(ctx, req.ServiceID)
	case loans.MediaTV:
		err = s.sonarr.DeleteSeasons(ctx, req.ServiceID, req.Seasons)
	default:
		return fmt.Errorf("request %d: unsupported media type %q", req.RequestID, req.MediaType)
	}
	if err := ignoreNotFound(err); err != nil {
		return err
	}

	if err := ignoreNotFound(s.overseerr.DeleteRequest(ctx, req.RequestID)); err != nil {
		return err
	}
	if err := ignoreNotFound(s.overseerr.DeleteMedia(ctx, req.MediaID)); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "deleted media",
		"request", req.RequestID,
		"media_type", req.MediaType,
		"service_id", req.ServiceID,
	)
	return nil
}

// Pingers returns the status checks of the three services keyed by name.
func (s *Service) Pingers() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		s.overseerr.Service(): s.overseerr.Ping,
		s.radarr.Service():    s.radarr.Ping,
		s.sonarr.Service():    s.sonarr.Ping,
	}
}

func ignoreNotFound(err error) error {
	if loans.IsNotFound(err) {
		return nil
	}
	return err
}
