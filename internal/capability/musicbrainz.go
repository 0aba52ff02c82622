package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"sonar/internal/sonarerr"
)

// MusicBrainzProvider implements MetadataProvider against the public
// MusicBrainz search API, adapted from this codebase's rate-limited
// MusicBrainz client: one request per second, JSON search responses,
// quoted Lucene query terms.
type MusicBrainzProvider struct {
	http    *http.Client
	baseURL string
	mu      sync.Mutex
	lastReq time.Time
}

func NewMusicBrainzProvider(baseURL string) *MusicBrainzProvider {
	if baseURL == "" {
		baseURL = "https://musicbrainz.org/ws/2"
	}
	return &MusicBrainzProvider{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
	}
}

func (p *MusicBrainzProvider) Name() string { return "musicbrainz" }

func (p *MusicBrainzProvider) throttle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if elapsed := time.Since(p.lastReq); elapsed < time.Second {
		time.Sleep(time.Second - elapsed)
	}
	p.lastReq = time.Now()
}

func (p *MusicBrainzProvider) get(ctx context.Context, path string) ([]byte, error) {
	p.throttle()

	u := p.baseURL + path
	if strings.Contains(u, "?") {
		u += "&fmt=json"
	} else {
		u += "?fmt=json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sonar/1.0 (+https://example.invalid/sonar)")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		time.Sleep(2 * time.Second)
		p.mu.Lock()
		p.lastReq = time.Now()
		p.mu.Unlock()
		return p.get(ctx, path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("musicbrainz: not found: %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("musicbrainz: http %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

type mbArtistSearch struct {
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
	} `json:"artists"`
}

// Fetch searches for entityName as an artist and returns its first match's
// canonical name, with its MBID (sonar.io/mb-id) and its first tag, if any
// (sonar.io/mb-tags), as properties. fields is accepted for interface
// conformance; this provider always returns name+properties since that's
// all MusicBrainz's search endpoint exposes without a second per-MBID
// lookup round-trip.
func (p *MusicBrainzProvider) Fetch(ctx context.Context, entityName string, fields []string) (MetadataPatch, error) {
	q := fmt.Sprintf("artist:%s", quoteQuery(entityName))
	path := fmt.Sprintf("/artist/?query=%s&limit=1", url.QueryEscape(q))

	body, err := p.get(ctx, path)
	if err != nil {
		return MetadataPatch{}, sonarerr.ProviderError("musicbrainz", err.Error())
	}

	var resp mbArtistSearch
	if err := json.Unmarshal(body, &resp); err != nil {
		return MetadataPatch{}, sonarerr.ProviderError("musicbrainz", "parsing response: "+err.Error())
	}
	if len(resp.Artists) == 0 {
		return MetadataPatch{}, nil
	}

	best := resp.Artists[0]
	patch := MetadataPatch{Name: best.Name, Properties: map[string]string{"sonar.io/mb-id": best.ID}}
	if len(best.Tags) > 0 {
		patch.Properties["sonar.io/mb-tags"] = best.Tags[0].Name
	}
	return patch, nil
}

func quoteQuery(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
