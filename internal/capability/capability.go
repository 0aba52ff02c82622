// Package capability defines the pluggable external-collaborator
// interfaces Sonar's core depends on but never implements directly: tag
// extraction, audio property probing, metadata provider lookups, and
// scrobble submission. Concrete adapters live in this package; the engine
// wires one of each in by name at startup.
package capability

import (
	"context"
	"time"
)

// Tags is the import pipeline's view of a materialized audio blob's
// embedded metadata, per spec §4.10 step 2.
type Tags struct {
	Title                string
	ArtistName           string
	AlbumName            string
	TrackNumber          int
	DiscNumber           int
	DurationMs           int
	CoverBytes           []byte
	CoverMime            string
	AdditionalProperties map[string]string
}

// TagExtractor recovers embedded tag metadata from a fully materialized
// audio payload.
type TagExtractor interface {
	ExtractTags(data []byte) (Tags, error)
}

// AudioProperties is the Audio Service's view of a payload's technical
// attributes (spec §3's Audio essentials, minus mime which the caller
// already knows from the upload's content type or container sniff).
type AudioProperties struct {
	Bitrate    int
	DurationMs int
	Channels   int
	SampleFreq int
}

// AudioExtractor probes a payload's bitrate/duration/channels/sample rate.
// mime narrows which container parser to use.
type AudioExtractor interface {
	ExtractProperties(mime string, data []byte) (AudioProperties, error)
}

// MetadataPatch is a provider's partial answer to a metadata enrichment
// request: unset fields are left nil/empty and never overwrite existing
// data (spec §4.11's field-mask policy).
type MetadataPatch struct {
	Name       string
	Properties map[string]string
	CoverBytes []byte
	CoverMime  string
	// Tracks is populated only for album-tracks enrichment requests
	// (MetadataAlbumTracks); keyed by track name.
	Tracks map[string]MetadataPatch
}

// MetadataProvider answers enrichment requests for a catalog entity.
// entityName (the entity's current name) identifies what's being
// enriched; fields lists which
// MetadataPatch members the caller wants populated.
type MetadataProvider interface {
	Name() string
	Fetch(ctx context.Context, entityName string, fields []string) (MetadataPatch, error)
}

// ScrobbleEvent is what Scrobbler.Submit reports upstream.
type ScrobbleEvent struct {
	ArtistName string
	AlbumName  string
	TrackName  string
	Timestamp  time.Time
}

// Scrobbler submits a listen event to an external service (e.g. Last.fm).
type Scrobbler interface {
	Name() string
	Submit(ctx context.Context, ev ScrobbleEvent) error
}
