// Package pexels fetches stock-media candidates from the Pexels search API.
package pexels

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
)

// Config holds settings for the Pexels client.
type Config struct {
	APIKey        string
	VideoEndpoint string
	PhotoEndpoint string
	Timeout       time.Duration
}

// Client issues paginated searches against the Pexels video and photo
// endpoints. Calls fail soft: any transport or decode failure yields an
// empty candidate list, which callers must treat as "no information".
type Client struct {
	client        *resty.Client
	videoEndpoint string
	photoEndpoint string
	apiKey        string
}

// NewClient creates a Pexels search client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Authorization", cfg.APIKey)

	return &Client{
		client:        client,
		videoEndpoint: cfg.VideoEndpoint,
		photoEndpoint: cfg.PhotoEndpoint,
		apiKey:        cfg.APIKey,
	}
}

// HasKey reports whether an API key is configured. Without one the resolver
// skips search entirely.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// Pexels API response structures
type videoSearchResponse struct {
	Videos []struct {
		ID    int    `json:"id"`
		URL   string `json:"url"`
		Image string `json:"image"`
		User  struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []struct {
			Width int    `json:"width"`
			Link  string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

type photoSearchResponse struct {
	Photos []struct {
		ID           int    `json:"id"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// SearchVideos fetches one page of video candidates for query. A network
// error, non-2xx status, or malformed body returns an empty slice together
// with the error for observability; no retries happen here.
func (c *Client) SearchVideos(ctx context.Context, query string, page, perPage int) ([]domain.Candidate, error) {
	var result videoSearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       query,
			"per_page":    strconv.Itoa(perPage),
			"page":        strconv.Itoa(page),
			"orientation": "landscape",
		}).
		SetResult(&result).
		Get(c.videoEndpoint)

	if err != nil {
		logger.CtxWarn(ctx, "Pexels video search failed: %v", err)
		return nil, fmt.Errorf("pexels video search: %w", err)
	}
	if resp.IsError() {
		logger.CtxWarn(ctx, "Pexels video search returned status %d", resp.StatusCode())
		return nil, fmt.Errorf("pexels video search: status %d", resp.StatusCode())
	}

	candidates := make([]domain.Candidate, 0, len(result.Videos))
	for _, v := range result.Videos {
		cand := domain.Candidate{
			ID:           v.ID,
			Type:         domain.MediaTypeVideo,
			PageURL:      v.URL,
			ThumbnailURL: v.Image,
			Uploader:     v.User.Name,
		}
		for _, f := range v.VideoFiles {
			cand.Files = append(cand.Files, domain.VideoFile{Width: f.Width, Link: f.Link})
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// SearchPhotos fetches one page of photo candidates for query, with the same
// fail-soft contract as SearchVideos.
func (c *Client) SearchPhotos(ctx context.Context, query string, page, perPage int) ([]domain.Candidate, error) {
	var result photoSearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"per_page": strconv.Itoa(perPage),
			"page":     strconv.Itoa(page),
		}).
		SetResult(&result).
		Get(c.photoEndpoint)

	if err != nil {
		logger.CtxWarn(ctx, "Pexels photo search failed: %v", err)
		return nil, fmt.Errorf("pexels photo search: %w", err)
	}
	if resp.IsError() {
		logger.CtxWarn(ctx, "Pexels photo search returned status %d", resp.StatusCode())
		return nil, fmt.Errorf("pexels photo search: status %d", resp.StatusCode())
	}

	candidates := make([]domain.Candidate, 0, len(result.Photos))
	for _, p := range result.Photos {
		candidates = append(candidates, domain.Candidate{
			ID:       p.ID,
			Type:     domain.MediaTypeImage,
			PageURL:  p.URL,
			Uploader: p.Photographer,
			Photo: domain.PhotoSource{
				Original: p.Src.Original,
				Large:    p.Src.Large,
			},
		})
	}
	return candidates, nil
}
