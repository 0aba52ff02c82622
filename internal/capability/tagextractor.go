package capability

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"sonar/internal/sonarerr"
)

// DhowdenTagExtractor implements TagExtractor over github.com/dhowden/tag,
// which natively understands ID3, FLAC, OGG/Vorbis, and MP4 containers.
type DhowdenTagExtractor struct{}

func NewDhowdenTagExtractor() *DhowdenTagExtractor { return &DhowdenTagExtractor{} }

func (e *DhowdenTagExtractor) ExtractTags(data []byte) (Tags, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return Tags{}, sonarerr.InvalidArgument("audio", "no readable tags: "+err.Error())
	}

	trackNum, _ := m.Track()
	discNum, _ := m.Disc()

	tags := Tags{
		Title:                strings.TrimSpace(m.Title()),
		ArtistName:           firstNonEmpty(strings.TrimSpace(m.Artist()), strings.TrimSpace(m.AlbumArtist())),
		AlbumName:            strings.TrimSpace(m.Album()),
		TrackNumber:          trackNum,
		DiscNumber:           discNum,
		AdditionalProperties: map[string]string{},
	}

	if pic := m.Picture(); pic != nil {
		tags.CoverBytes = pic.Data
		tags.CoverMime = pic.MIMEType
	}
	if y := m.Year(); y != 0 {
		tags.AdditionalProperties["sonar.io/year"] = strconv.Itoa(y)
	}
	if g := m.Genre(); g != "" {
		tags.AdditionalProperties["sonar.io/genre"] = g
	}
	if c := m.Composer(); c != "" {
		tags.AdditionalProperties["sonar.io/composer"] = c
	}

	return tags, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

