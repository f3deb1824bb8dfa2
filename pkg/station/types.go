package station

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CoverSuffix is appended to the station cover URL returned by the API.
const CoverSuffix = "?size=480&style=quad-flush"

// Metadata is the descriptive part of a station, fetched once per run.
type Metadata struct {
	Name        string
	Description string
	CoverURL    string
}

// Station is a remote curated queue of tracks.
//
// Name is empty until metadata has been applied. Tracks is append-only and is
// only ever touched by the goroutine draining the station.
type Station struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Tracks      []Track
}

// New returns a Station for the given identifier with no metadata.
func New(id string) *Station {
	return &Station{ID: id}
}

// Apply copies fetched metadata onto the station.
func (s *Station) Apply(m Metadata) {
	s.Name = m.Name
	s.Description = m.Description
	s.CoverURL = m.CoverURL
}

// Add appends a track and returns the number of tracks retrieved so far.
func (s *Station) Add(t Track) int {
	s.Tracks = append(s.Tracks, t)
	return len(s.Tracks)
}

// Track is one song announced by the next-track endpoint.
type Track struct {
	ID       string
	Title    string
	Album    string
	Artist   string
	Genre    string
	CoverURL string
}

func (t Track) String() string {
	return t.Title + " by " + t.Artist
}

// OutcomeKind classifies a poll of the next-track endpoint.
type OutcomeKind int

const (
	// OutcomeTrack carries a track and the URL its audio can be fetched from.
	OutcomeTrack OutcomeKind = iota
	// OutcomeEnd is the graceful end-of-station signal.
	OutcomeEnd
	// OutcomeError is any other non-200 answer. It is never retried.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTrack:
		return "track"
	case OutcomeEnd:
		return "end"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the decision value produced by one poll.
type Outcome struct {
	Kind       OutcomeKind
	Track      Track
	ListenURL  string
	StatusCode int
	Message    string
}

// Err returns the API error carried by an OutcomeError, or nil.
func (o Outcome) Err() error {
	if o.Kind != OutcomeError {
		return nil
	}
	return &APIError{StatusCode: o.StatusCode, Message: o.Message}
}

// APIError is a non-200 answer from the station API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("station api returned status %d: %s", e.StatusCode, e.Message)
}

type metadataPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
}

func (p metadataPayload) metadata() Metadata {
	m := Metadata{
		Name:        p.Name,
		Description: p.Description,
	}
	if p.CoverURL != "" {
		m.CoverURL = p.CoverURL + CoverSuffix
	}
	return m
}

type nextPayload struct {
	Song      *songPayload `json:"song"`
	ListenURL string       `json:"listen_url"`
}

type songPayload struct {
	ID     flexID `json:"id"`
	Title  string `json:"title"`
	Album  string `json:"album"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	Genre    string `json:"genre"`
	CoverURL string `json:"cover_url"`
}

func (p *songPayload) track() Track {
	return Track{
		ID:       string(p.ID),
		Title:    p.Title,
		Album:    p.Album,
		Artist:   p.Artist.Name,
		Genre:    p.Genre,
		CoverURL: p.CoverURL,
	}
}

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported id %s", strings.TrimSpace(string(data)))
	}
	*f = flexID(n.String())
	return nil
}
