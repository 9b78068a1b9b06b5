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
	"golang.org/x/sync/errgroup"
)

// Sonarr is a client of the Sonarr v3 API.
type Sonarr struct {
	*Client
}

// NewSonarr creates a Sonarr client.
func NewSonarr(cfg config.ServiceConfig) *Sonarr {
	return &Sonarr{Client: NewClient("sonarr", cfg)}
}

type sonarrSeries struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Images  []image `json:"images"`
	Seasons []struct {
		SeasonNumber int  `json:"seasonNumber"`
		Monitored    bool `json:"monitored"`
	} `json:"seasons"`
}

type sonarrEpisode struct {
	ID            int  `json:"id"`
	SeasonNumber  int  `json:"seasonNumber"`
	HasFile       bool `json:"hasFile"`
	EpisodeFileID int  `json:"episodeFileId"`
	EpisodeFile   *struct {
		DateAdded time.Time `json:"dateAdded"`
		Size      int64     `json:"size"`
	} `json:"episodeFile"`
}

func seriesPath(seriesID int) string {
	return fmt.Sprintf("/api/v3/series/%d", seriesID)
}

// episodes lists the episodes of one season with their files.
func (s *Sonarr) episodes(ctx context.Context, seriesID, season int) ([]sonarrEpisode, error) {
	query := url.Values{
		"seriesId":           {strconv.Itoa(seriesID)},
		"seasonNumber":       {strconv.Itoa(season)},
		"includeEpisodeFile": {"true"},
	}
	var episodes []sonarrEpisode
	if err := s.get(ctx, "/api/v3/episode", query, &episodes); err != nil {
		return nil, s.wrap("list_episodes", "series", seriesID, err)
	}
	return episodes, nil
}

// SeriesMedia resolves the requested seasons of a series. A season is
// available when every episode has a file, and the request is available
// when every requested season is. It is available since the latest episode
// file was added.
func (s *Sonarr) SeriesMedia(ctx context.Context, seriesID int, seasons []int) (*loans.Media, error) {
	var series sonarrSeries
	if err := s.get(ctx, seriesPath(seriesID), nil, &series); err != nil {
		return nil, s.wrap("get_series", "series", seriesID, err)
	}

	perSeason := make([][]sonarrEpisode, len(seasons))
	g, gctx := errgroup.WithContext(ctx)
	for i, season := range seasons {
		g.Go(func() error {
			episodes, err := s.episodes(gctx, seriesID, season)
			perSeason[i] = episodes
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	media := &loans.Media{
		Title:     series.Title,
		Available: len(seasons) > 0,
		PosterURL: posterURL(series.Images),
	}

	var latest time.Time
	for i, episodes := range perSeason {
		if !seasonComplete(episodes) {
			media.Available = false
			s.logger.DebugContext(ctx, "season not fully available",
				"series", seriesID,
				"season", seasons[i],
				"title", series.Title,
			)
			break
		}
		for _, ep := range episodes {
			if ep.EpisodeFile == nil {
				continue
			}
			media.SizeOnDisk += ep.EpisodeFile.Size
			if ep.EpisodeFile.DateAdded.After(latest) {
				latest = ep.EpisodeFile.DateAdded
			}
		}
	}

	if media.Available && !latest.IsZero() {
		latest = latest.UTC()
		media.AvailableSince = &latest
	}
	return media, nil
}

// seasonComplete reports whether a season has episodes and all of them
// have a file.
func seasonComplete(episodes []sonarrEpisode) bool {
	if len(episodes) == 0 {
		return false
	}
	for _, ep := range episodes {
		if !ep.HasFile {
			return false
		}
	}
	return true
}

// DeleteSeasons unmonitors the given seasons, deletes their episode files
// and deletes the series once no season remains monitored.
func (s *Sonarr) DeleteSeasons(ctx context.Context, seriesID int, seasons []int) error {
	remaining, err := s.unmonitor(ctx, seriesID, seasons)
	if err != nil {
		return err
	}

	for _, season := range seasons {
		episodes, err := s.episodes(ctx, seriesID, season)
		if err != nil {
			return err
		}
		for _, ep := range episodes {
			if ep.EpisodeFileID == 0 {
				continue
			}
			path := fmt.Sprintf("/api/v3/episodefile/%d", ep.EpisodeFileID)
			if err := s.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil && !IsStatus(err, http.StatusNotFound) {
				return s.wrap("delete_episode_file", "episode file", ep.EpisodeFileID, err)
			}
		}
	}

	if remaining > 0 {
		return nil
	}

	s.logger.InfoContext(ctx, "deleting series with no monitored season", "series", seriesID)
	query := url.Values{
		"deleteFiles":            {"false"},
		"addImportListExclusion": {"false"},
	}
	err = s.do(ctx, http.MethodDelete, seriesPath(seriesID), query, nil, nil)
	return s.wrap("delete_series", "series", seriesID, err)
}

// unmonitor turns monitoring off for seasons and returns how many seasons
// stay monitored. The series document is round-tripped untouched otherwise.
func (s *Sonarr) unmonitor(ctx context.Context, seriesID int, seasons []int) (int, error) {
	var series map[string]any
	if err := s.get(ctx, seriesPath(seriesID), nil, &series); err != nil {
		return 0, s.wrap("get_series", "series", seriesID, err)
	}

	drop := make(map[int]bool, len(seasons))
	for _, n := range seasons {
		drop[n] = true
	}

	remaining := 0
	list, _ := series["seasons"].([]any)
	for _, item := range list {
		season, ok := item.(map[string]any)
		if !ok {
			continue
		}
		number, _ := season["seasonNumber"].(float64)
		if drop[int(number)] {
			season["monitored"] = false
		}
		if monitored, _ := season["monitored"].(bool); monitored {
			remaining++
		}
	}

	if err := s.do(ctx, http.MethodPut, seriesPath(seriesID), nil, series, nil); err != nil {
		return 0, s.wrap("update_series", "series", seriesID, err)
	}
	return remaining, nil
}

// Ping checks that Sonarr answers with the configured API key.
func (s *Sonarr) Ping(ctx context.Context) error {
	return s.ping(ctx, "/api/v3/system/status")
}
