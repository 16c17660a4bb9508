package domain

import "strings"

// Track describes a searchable, downloadable item.
// Name and Artist are optional and empty when the search API omitted them.
type Track struct {
	Name      string `json:"name,omitempty"`
	Artist    string `json:"artist,omitempty"`
	SourceURL string `json:"source_url"`
}

// NewTrack creates a track record
func NewTrack(name, artist, sourceURL string) Track {
	return Track{
		Name:      name,
		Artist:    artist,
		SourceURL: strings.TrimSpace(sourceURL),
	}
}

// DisplayName returns "Artist - Name", falling back to whatever is known
func (t Track) DisplayName() string {
	switch {
	case t.Name != "" && t.Artist != "":
		return t.Artist + " - " + t.Name
	case t.Name != "":
		return t.Name
	case t.Artist != "":
		return t.Artist
	default:
		return t.SourceURL
	}
}

// ResultSet is the ordered outcome of one search query.
// Source URLs are unique within a result set.
type ResultSet struct {
	Query  string  `json:"query"`
	Tracks []Track `json:"tracks"`
	index  map[string]int
}

// NewResultSet builds a result set, dropping tracks without a source URL
// and later duplicates of an already seen source URL.
func NewResultSet(query string, tracks []Track) *ResultSet {
	rs := &ResultSet{
		Query:  query,
		Tracks: make([]Track, 0, len(tracks)),
		index:  make(map[string]int, len(tracks)),
	}
	for _, t := range tracks {
		if t.SourceURL == "" {
			continue
		}
		if _, dup := rs.index[t.SourceURL]; dup {
			continue
		}
		rs.index[t.SourceURL] = len(rs.Tracks)
		rs.Tracks = append(rs.Tracks, t)
	}
	return rs
}

// Len returns the number of tracks
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Tracks)
}

// Find returns the track registered under sourceURL
func (rs *ResultSet) Find(sourceURL string) (Track, bool) {
	if rs == nil {
		return Track{}, false
	}
	i, ok := rs.index[sourceURL]
	if !ok {
		return Track{}, false
	}
	return rs.Tracks[i], true
}
