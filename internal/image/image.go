// Package image implements Sonar's Image Service: it validates an image
// payload's mime type from its magic bytes, stores it in the blob store,
// and records a catalog Image row pointing at the resulting blob.
package image

import (
	"bytes"
	"io"

	"golang.org/x/image/webp"

	"sonar/internal/blob"
	"sonar/internal/catalog"
	"sonar/internal/sonarerr"
)

// Service ties the blob store to the catalog's images table.
type Service struct {
	blobs *blob.Store
	cat   *catalog.Catalog
}

func New(blobs *blob.Store, cat *catalog.Catalog) *Service {
	return &Service{blobs: blobs, cat: cat}
}

// Create validates r's magic bytes as one of jpeg/png/webp, stores it in
// the blob store, and links a catalog Image row to the resulting blob.
// Two concurrent creates of identical bytes land on the same blob (blob
// store dedup) but each still gets its own Image row, per spec §8 scenario
// 6.
func (s *Service) Create(r io.Reader) (*catalog.Image, error) {
	// Buffer enough of the stream to sniff its magic bytes without
	// consuming it, then re-stitch the buffered prefix back onto the
	// reader for the blob store's full-content hash.
	var sniff bytes.Buffer
	if _, err := io.CopyN(&sniff, r, 512); err != nil && err != io.EOF {
		return nil, sonarerr.IoError(err)
	}
	mime, err := detectMime(sniff.Bytes())
	if err != nil {
		return nil, err
	}

	full := io.MultiReader(bytes.NewReader(sniff.Bytes()), r)
	info, err := s.blobs.Put(full)
	if err != nil {
		return nil, sonarerr.IoError(err)
	}

	row, err := s.cat.UpsertBlob(info.Key, info.Size, info.SHA256)
	if err != nil {
		return nil, err
	}
	return s.cat.CreateImage(row.ID, mime)
}

// Get returns the image's metadata row and its byte payload.
func (s *Service) Get(id int64) (*catalog.Image, io.ReadCloser, error) {
	img, err := s.cat.GetImage(id)
	if err != nil {
		return nil, nil, err
	}
	blobRow, err := s.cat.GetBlobByID(img.BlobID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(blobRow.Key)
	if err != nil {
		return nil, nil, sonarerr.IoError(err)
	}
	return img, rc, nil
}

// Delete removes the image row if nothing still references it. The
// underlying blob is left for the next garbage-collection sweep since
// another image with identical bytes may still reference it.
func (s *Service) Delete(id int64) error {
	return s.cat.DeleteImage(id)
}

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeWebP = "image/webp"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// detectMime restricts accepted images to jpeg/png/webp, per spec §4.5's
// "mime recognized" invariant. webp additionally gets a full container
// decode via golang.org/x/image/webp since its magic bytes (a RIFF/WEBP
// four-byte pair) are too weak a signal on their own.
func detectMime(head []byte) (string, error) {
	switch {
	case bytes.HasPrefix(head, jpegMagic):
		return mimeJPEG, nil
	case bytes.HasPrefix(head, pngMagic):
		return mimePNG, nil
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		if _, err := webp.DecodeConfig(bytes.NewReader(head)); err != nil {
			return "", sonarerr.UnsupportedMime("webp (failed container validation)")
		}
		return mimeWebP, nil
	default:
		return "", sonarerr.UnsupportedMime("unrecognized image format")
	}
}
