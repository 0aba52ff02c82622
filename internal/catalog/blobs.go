package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

// BlobRow is the catalog's row for a blob store entry: exactly one per
// distinct sha256, referenced by Image/Audio rows.
type BlobRow struct {
	ID     int64
	Key    string
	Size   int64
	SHA256 string
}

// UpsertBlob records a blob store Put result, returning the existing row
// if this sha256 was already known (dedup at the catalog level mirrors
// dedup at the blob store level).
func (c *Catalog) UpsertBlob(key string, size int64, sha256 string) (*BlobRow, error) {
	b := &BlobRow{Key: key, Size: size, SHA256: sha256}
	err := c.db.QueryRow(
		`INSERT INTO blobs (key, size, sha256) VALUES ($1, $2, $3)
		 ON CONFLICT (sha256) DO UPDATE SET sha256 = EXCLUDED.sha256
		 RETURNING id`,
		key, size, sha256,
	).Scan(&b.ID)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return b, nil
}

func (c *Catalog) GetBlobByID(id int64) (*BlobRow, error) {
	b := &BlobRow{}
	err := c.db.QueryRow(`SELECT id, key, size, sha256 FROM blobs WHERE id = $1`, id).
		Scan(&b.ID, &b.Key, &b.Size, &b.SHA256)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("blob", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return b, nil
}

// BlobReferenced reports whether any image or audio row still points at
// blobID, the check the Image/Audio services run before allowing a delete.
func (c *Catalog) BlobReferenced(blobID int64) (bool, error) {
	var n int
	err := c.db.QueryRow(
		`SELECT COUNT(*) FROM (
			SELECT 1 FROM images WHERE blob_id = $1
			UNION ALL
			SELECT 1 FROM audios WHERE blob_id = $1
		 ) refs`, blobID).Scan(&n)
	if err != nil {
		return false, sonarerr.Internal(err)
	}
	return n > 0, nil
}

// ReferencedBlobKeys returns every blob key still reachable from an image
// or audio row, for the blob store's garbage collector.
func (c *Catalog) ReferencedBlobKeys() (map[string]bool, error) {
	rows, err := c.db.Query(`
		SELECT b.key FROM blobs b
		WHERE EXISTS (SELECT 1 FROM images i WHERE i.blob_id = b.id)
		   OR EXISTS (SELECT 1 FROM audios a WHERE a.blob_id = b.id)
	`)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, sonarerr.Internal(err)
		}
		keys[k] = true
	}
	return keys, nil
}
