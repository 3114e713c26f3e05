package domain

import "strings"

// MediaType tags resolved media for the downstream player.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
)

// MediaQuery is the free-text topic driving a media search.
type MediaQuery string

// Tokens derives the matching token set: lowercased, hyphens treated as
// separators, tokens of length <= 2 dropped.
func (q MediaQuery) Tokens() []string {
	raw := strings.Fields(strings.ReplaceAll(strings.ToLower(string(q)), "-", " "))
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// VideoFile is one encoded variant of a stock video.
type VideoFile struct {
	Width int    `json:"width"`
	Link  string `json:"link"`
}

// PhotoSource holds the direct links of a stock photo.
type PhotoSource struct {
	Original string `json:"original"`
	Large    string `json:"large"`
}

// Candidate is one raw result from the stock-media search API. Candidates are
// immutable once fetched; they are scored and discarded, never persisted.
type Candidate struct {
	ID           int
	Type         MediaType
	PageURL      string
	ThumbnailURL string
	Uploader     string
	Files        []VideoFile
	Photo        PhotoSource
}

// TextSurfaces returns the text fragments a candidate is scored on.
func (c Candidate) TextSurfaces() []string {
	surfaces := make([]string, 0, 3+len(c.Files))
	if c.PageURL != "" {
		surfaces = append(surfaces, c.PageURL)
	}
	if c.ThumbnailURL != "" {
		surfaces = append(surfaces, c.ThumbnailURL)
	}
	if c.Uploader != "" {
		surfaces = append(surfaces, c.Uploader)
	}
	for _, f := range c.Files {
		if f.Link != "" {
			surfaces = append(surfaces, f.Link)
		}
	}
	if c.Photo.Original != "" {
		surfaces = append(surfaces, c.Photo.Original)
	}
	return surfaces
}

// MaxWidth returns the largest encoded-file width, 0 when no files exist.
func (c Candidate) MaxWidth() int {
	max := 0
	for _, f := range c.Files {
		if f.Width > max {
			max = f.Width
		}
	}
	return max
}

// BestFile picks the first variant at or above minWidth, falling back to the
// widest variant available. ok is false when the candidate has no files.
func (c Candidate) BestFile(minWidth int) (VideoFile, bool) {
	if len(c.Files) == 0 {
		return VideoFile{}, false
	}
	for _, f := range c.Files {
		if f.Width >= minWidth {
			return f, true
		}
	}
	best := c.Files[0]
	for _, f := range c.Files[1:] {
		if f.Width > best.Width {
			best = f
		}
	}
	return best, true
}

// ResolvedMedia is the resolver's terminal output for one topic. Matched
// reports whether an accept threshold was crossed; a false value means a
// best-effort candidate or the default asset was returned.
type ResolvedMedia struct {
	URL     string    `json:"url"`
	Type    MediaType `json:"type"`
	Matched bool      `json:"matched"`
}
