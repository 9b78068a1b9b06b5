package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
)

// Radarr is a client of the Radarr v3 API.
type Radarr struct {
	*Client
}

// NewRadarr creates a Radarr client.
func NewRadarr(cfg config.ServiceConfig) *Radarr {
	return &Radarr{Client: NewClient("radarr", cfg)}
}

type radarrMovie struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	HasFile    bool    `json:"hasFile"`
	SizeOnDisk int64   `json:"sizeOnDisk"`
	Images     []image `json:"images"`
	MovieFile  *struct {
		DateAdded time.Time `json:"dateAdded"`
	} `json:"movieFile"`
}

// Movie resolves a movie. It is available once Radarr has its file, and
// available since the file was added.
func (r *Radarr) Movie(ctx context.Context, movieID int) (*loans.Media, error) {
	var movie radarrMovie
	if err := r.get(ctx, fmt.Sprintf("/api/v3/movie/%d", movieID), nil, &movie); err != nil {
		return nil, r.wrap("get_movie", "movie", movieID, err)
	}

	media := &loans.Media{
		Title:      movie.Title,
		Available:  movie.HasFile,
		SizeOnDisk: movie.SizeOnDisk,
		PosterURL:  posterURL(movie.Images),
	}
	if movie.HasFile && movie.MovieFile != nil && !movie.MovieFile.DateAdded.IsZero() {
		added := movie.MovieFile.DateAdded.UTC()
		media.AvailableSince = &added
	}

	r.logger.DebugContext(ctx, "resolved movie",
		"movie", movieID,
		"title", movie.Title,
		"has_file", movie.HasFile,
		"size_on_disk", movie.SizeOnDisk,
	)
	return media, nil
}

// DeleteMovie removes a movie and its files.
func (r *Radarr) DeleteMovie(ctx context.Context, movieID int) error {
	query := url.Values{"deleteFiles": {"true"}}
	err := r.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v3/movie/%d", movieID), query, nil, nil)
	return r.wrap("delete_movie", "movie", movieID, err)
}

// Ping checks that Radarr answers with the configured API key.
func (r *Radarr) Ping(ctx context.Context) error {
	return r.ping(ctx, "/api/v3/system/status")
}
