// Package audio implements Sonar's Audio Service: stores audio blobs with
// technical attributes extracted by the AudioExtractor capability, and
// streams a track's preferred audio back out with HTTP Range support.
package audio

import (
	"bytes"
	"io"

	"sonar/internal/blob"
	"sonar/internal/capability"
	"sonar/internal/catalog"
	"sonar/internal/sonarerr"
)

type Service struct {
	blobs      *blob.Store
	cat        *catalog.Catalog
	extractors map[string]capability.AudioExtractor
}

func New(blobs *blob.Store, cat *catalog.Catalog, extractor capability.AudioExtractor) *Service {
	return &Service{
		blobs: blobs,
		cat:   cat,
		extractors: map[string]capability.AudioExtractor{
			"*": extractor,
		},
	}
}

// Attach materializes data into the blob store, probes its technical
// properties via the AudioExtractor capability, creates an Audio row, and
// links it to trackID — becoming the preferred audio if the track has
// none yet (spec §4.6, §4.10 step 5).
func (s *Service) Attach(trackID int64, mime string, data []byte) (*catalog.Audio, error) {
	info, err := s.blobs.Put(bytes.NewReader(data))
	if err != nil {
		return nil, sonarerr.IoError(err)
	}
	blobRow, err := s.cat.UpsertBlob(info.Key, info.Size, info.SHA256)
	if err != nil {
		return nil, err
	}

	props, err := s.extractors["*"].ExtractProperties(mime, data)
	if err != nil {
		return nil, err
	}

	audioRow, err := s.cat.CreateAudio(blobRow.ID, catalog.AudioAttrs{
		Mime: mime, Bitrate: props.Bitrate, DurationMs: props.DurationMs,
		Channels: props.Channels, SampleFreq: props.SampleFreq,
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.cat.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if _, err := s.cat.AttachTrackAudio(tx, trackID, audioRow.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, sonarerr.Internal(err)
	}
	return audioRow, nil
}

// SetPreferred reassigns trackID's preferred audio to audioID.
func (s *Service) SetPreferred(trackID, audioID int64) error {
	return s.cat.SetPreferredAudio(trackID, audioID)
}

// Stream opens trackID's preferred audio, honoring an optional byte range
// (length 0 means "to the end"), for the streaming HTTP endpoint.
func (s *Service) Stream(trackID int64, offset, length int64) (*catalog.Audio, io.ReadCloser, error) {
	audioRow, err := s.cat.PreferredAudio(trackID)
	if err != nil {
		return nil, nil, err
	}
	blobRow, err := s.cat.GetBlobByID(audioRow.BlobID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.GetRange(blobRow.Key, offset, length)
	if err != nil {
		return nil, nil, sonarerr.IoError(err)
	}
	return audioRow, rc, nil
}
