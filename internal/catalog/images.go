package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

type Image struct {
	ID     int64
	BlobID int64
	Mime   string
}

func (c *Catalog) CreateImage(blobID int64, mime string) (*Image, error) {
	img := &Image{BlobID: blobID, Mime: mime}
	err := c.db.QueryRow(
		`INSERT INTO images (blob_id, mime_type) VALUES ($1, $2) RETURNING id`,
		blobID, mime,
	).Scan(&img.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("blob", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return img, nil
}

func (c *Catalog) GetImage(id int64) (*Image, error) {
	img := &Image{}
	err := c.db.QueryRow(`SELECT id, blob_id, mime_type FROM images WHERE id = $1`, id).
		Scan(&img.ID, &img.BlobID, &img.Mime)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("image", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return img, nil
}

// ImageReferenced reports whether any artist/album/track/playlist/user row
// still points at imageID, the check DeleteImage runs before deleting.
func (c *Catalog) ImageReferenced(imageID int64) (bool, error) {
	var n int
	err := c.db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT 1 FROM artists WHERE cover_image_id = $1
			UNION ALL SELECT 1 FROM albums WHERE cover_image_id = $1
			UNION ALL SELECT 1 FROM tracks WHERE cover_image_id = $1
			UNION ALL SELECT 1 FROM playlists WHERE cover_image_id = $1
			UNION ALL SELECT 1 FROM users WHERE avatar_image_id = $1
		) refs`, imageID).Scan(&n)
	if err != nil {
		return false, sonarerr.Internal(err)
	}
	return n > 0, nil
}

func (c *Catalog) DeleteImage(id int64) error {
	referenced, err := c.ImageReferenced(id)
	if err != nil {
		return err
	}
	if referenced {
		return sonarerr.Conflict("image is still referenced")
	}
	res, err := c.db.Exec(`DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("image", "")
	}
	return nil
}
