package station

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultEndpoint  = "http://songza.com/api/1/station"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2145.2 Safari/537.36"

	defaultRequestTimeout = 60 * time.Second
	fallbackMessage       = "an unexpected error occurred with the station API, please try again"
)

// endOfStation matches the natural-language message the API sends once a
// station has been exhausted. There is no dedicated status code for it.
var endOfStation = regexp.MustCompile(`(?i)end of this (playlist|station)`)

// IsEndOfStation reports whether an API error message signals end-of-station.
func IsEndOfStation(message string) bool {
	return endOfStation.MatchString(message)
}

// NewHTTPClient returns the client shared by every request of a run: a cookie
// jar that persists the API session and a fixed User-Agent. There is no
// overall timeout so long audio transfers are bounded only by their context.
func NewHTTPClient(userAgent string) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &http.Client{
		Jar:       jar,
		Transport: &userAgentTransport{next: transport, userAgent: userAgent},
	}, nil
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}

// Client talks to the station API.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	timeout  time.Duration
}

// NewClient builds a Client rooted at endpoint. The http client is shared
// with the rest of the run and is not modified.
func NewClient(endpoint string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		return nil, fmt.Errorf("http client is nil")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		endpoint: base,
		http:     httpClient,
		timeout:  timeout,
	}, nil
}

// StationURL returns the resource URL of a station, with optional sub-paths.
func (c *Client) StationURL(id string, elem ...string) string {
	return c.endpoint.JoinPath(append([]string{id}, elem...)...).String()
}

// Metadata fetches the station's descriptive fields. Any transport error or
// non-200 answer is returned as an error.
func (c *Client) Metadata(ctx context.Context, id string) (Metadata, error) {
	status, body, err := c.get(ctx, c.StationURL(id))
	if err != nil {
		return Metadata{}, errors.Wrap(err, "station metadata request failed")
	}
	if status != http.StatusOK {
		return Metadata{}, &APIError{StatusCode: status, Message: errorMessage(body)}
	}

	var payload metadataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to decode station metadata")
	}
	return payload.metadata(), nil
}

// Next polls the next-track endpoint once and classifies the answer.
//
// A returned error means no usable response was received (transport failure
// or an undecodable 200 body). Non-200 answers are not errors at this level:
// they come back as OutcomeEnd or OutcomeError.
func (c *Client) Next(ctx context.Context, id string) (Outcome, error) {
	status, body, err := c.get(ctx, c.StationURL(id, "next"))
	if err != nil {
		return Outcome{}, errors.Wrap(err, "next track request failed")
	}

	if status != http.StatusOK {
		msg := errorMessage(body)
		kind := OutcomeError
		if IsEndOfStation(msg) {
			kind = OutcomeEnd
		}
		return Outcome{Kind: kind, StatusCode: status, Message: msg}, nil
	}

	var payload nextPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Outcome{}, errors.Wrap(err, "failed to decode next track")
	}
	if payload.Song == nil {
		return Outcome{}, fmt.Errorf("next track response has no song")
	}

	return Outcome{
		Kind:       OutcomeTrack,
		Track:      payload.Song.track(),
		ListenURL:  payload.ListenURL,
		StatusCode: status,
	}, nil
}

func (c *Client) get(ctx context.Context, u string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read response")
	}
	return resp.StatusCode, body, nil
}

// errorMessage extracts a human message from an error body, which is either
// JSON with a "message" field or plain text.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if parsed.Type == gjson.String && strings.TrimSpace(parsed.String()) != "" {
			return parsed.String()
		}
		if msg := parsed.Get("message"); msg.Type == gjson.String && strings.TrimSpace(msg.String()) != "" {
			return msg.String()
		}
		return fallbackMessage
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallbackMessage
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
