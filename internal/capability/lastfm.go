package capability

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"sonar/internal/sonarerr"
)

const lastFMAPIURL = "https://ws.audioscrobbler.com/2.0/"

// LastFMScrobbler implements Scrobbler against Last.fm's track.scrobble
// method, adapted from this codebase's existing Last.fm HTTP client.
type LastFMScrobbler struct {
	client       *http.Client
	apiKey       string
	sharedSecret string
	sessionKey   string
}

func NewLastFMScrobbler(apiKey, sharedSecret, sessionKey string) *LastFMScrobbler {
	return &LastFMScrobbler{
		client:       &http.Client{Timeout: 10 * time.Second},
		apiKey:       apiKey,
		sharedSecret: sharedSecret,
		sessionKey:   sessionKey,
	}
}

func (s *LastFMScrobbler) Name() string { return "lastfm" }

func (s *LastFMScrobbler) Submit(ctx context.Context, ev ScrobbleEvent) error {
	if s.apiKey == "" {
		return sonarerr.ProviderError("lastfm", "no API key configured")
	}

	params := url.Values{}
	params.Set("method", "track.scrobble")
	params.Set("api_key", s.apiKey)
	params.Set("sk", s.sessionKey)
	params.Set("artist", ev.ArtistName)
	params.Set("track", ev.TrackName)
	params.Set("album", ev.AlbumName)
	params.Set("timestamp", strconv.FormatInt(ev.Timestamp.Unix(), 10))
	params.Set("api_sig", s.sign(params))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lastFMAPIURL, nil)
	if err != nil {
		return sonarerr.ProviderError("lastfm", err.Error())
	}
	req.URL.RawQuery = params.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[lastfm] scrobble request failed: %v", err)
		return sonarerr.ProviderError("lastfm", err.Error())
	}
	defer resp.Body.Close()

	var out struct {
		Error   int    `json:"error,omitempty"`
		Message string `json:"message,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return sonarerr.ProviderError("lastfm", "decoding response: "+err.Error())
	}
	if out.Error != 0 {
		return sonarerr.ProviderError("lastfm", fmt.Sprintf("api error %d: %s", out.Error, out.Message))
	}
	return nil
}

// sign implements Last.fm's signed-request scheme: every param except
// format/callback, sorted by key, concatenated as key+value, suffixed
// with the shared secret, then md5'd.
func (s *LastFMScrobbler) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		buf = append(buf, k...)
		buf = append(buf, params.Get(k)...)
	}
	buf = append(buf, s.sharedSecret...)

	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}
