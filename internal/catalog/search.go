package catalog

import (
	"strings"

	"sonar/internal/sonarerr"
)

// SearchRank classifies how a row matched a query, used by the search
// package to interleave results across entity kinds while preserving
// exact > prefix > substring precedence within the caller's limit.
type SearchRank int

const (
	RankExact SearchRank = iota
	RankPrefix
	RankSubstring
)

// searchOrderBy ranks name against $1 (lowercased query) and $2 (query +
// "%" for prefix matching), matching rows already filtered by a
// containment WHERE clause.
const searchOrderBy = `
	ORDER BY
		CASE
			WHEN LOWER(name) = $1 THEN 0
			WHEN LOWER(name) LIKE $2 THEN 1
			ELSE 2
		END,
		name ASC
	LIMIT $3`

type SearchHit[T any] struct {
	Entity T
	Rank   SearchRank
}

func rankOf(name, query string) SearchRank {
	lower := strings.ToLower(name)
	switch {
	case lower == query:
		return RankExact
	case strings.HasPrefix(lower, query):
		return RankPrefix
	default:
		return RankSubstring
	}
}

// SearchArtists returns artists whose name contains query (case
// insensitive), ranked exact/prefix/substring, most relevant first.
func (c *Catalog) SearchArtists(query string, limit int) ([]SearchHit[*Artist], error) {
	q := strings.ToLower(query)
	rows, err := c.db.Query(
		`SELECT id, name, listen_count, cover_image_id FROM artists WHERE LOWER(name) LIKE $4`+searchOrderBy,
		q, q+"%", limit, "%"+q+"%")
	if err != nil {
		return nil, internalErr(err)
	}
	defer rows.Close()

	var out []SearchHit[*Artist]
	for rows.Next() {
		a := &Artist{}
		if err := rows.Scan(&a.ID, &a.Name, &a.ListenCount, &a.CoverImageID); err != nil {
			return nil, internalErr(err)
		}
		out = append(out, SearchHit[*Artist]{Entity: a, Rank: rankOf(a.Name, q)})
	}
	return out, rows.Err()
}

// SearchAlbums returns albums whose name contains query.
func (c *Catalog) SearchAlbums(query string, limit int) ([]SearchHit[*Album], error) {
	q := strings.ToLower(query)
	rows, err := c.db.Query(albumSelect+` WHERE LOWER(al.name) LIKE $4`+searchOrderByAliased("al.name"),
		q, q+"%", limit, "%"+q+"%")
	if err != nil {
		return nil, internalErr(err)
	}

	albums, err := scanAlbums(rows)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit[*Album], len(albums))
	for i, al := range albums {
		out[i] = SearchHit[*Album]{Entity: al, Rank: rankOf(al.Name, q)}
	}
	return out, nil
}

// SearchTracks returns tracks whose name contains query.
func (c *Catalog) SearchTracks(query string, limit int) ([]SearchHit[*Track], error) {
	q := strings.ToLower(query)
	rows, err := c.db.Query(trackSelect+` WHERE LOWER(t.name) LIKE $4`+searchOrderByAliased("t.name"),
		q, q+"%", limit, "%"+q+"%")
	if err != nil {
		return nil, internalErr(err)
	}

	tracks, err := scanTracks(rows)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit[*Track], len(tracks))
	for i, t := range tracks {
		out[i] = SearchHit[*Track]{Entity: t, Rank: rankOf(t.Name, q)}
	}
	return out, nil
}

// SearchPlaylists returns playlists whose name contains query, scoped to
// the requesting user's own playlists (playlists have no public listing).
func (c *Catalog) SearchPlaylists(ownerID int64, query string, limit int) ([]SearchHit[*Playlist], error) {
	q := strings.ToLower(query)
	rows, err := c.db.Query(playlistSelect+` WHERE p.owner_id = $5 AND LOWER(p.name) LIKE $4`+searchOrderByAliased("p.name"),
		q, q+"%", limit, "%"+q+"%", ownerID)
	if err != nil {
		return nil, internalErr(err)
	}

	lists, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit[*Playlist], len(lists))
	for i, pl := range lists {
		out[i] = SearchHit[*Playlist]{Entity: pl, Rank: rankOf(pl.Name, q)}
	}
	return out, nil
}

func searchOrderByAliased(col string) string {
	return `
	ORDER BY
		CASE
			WHEN LOWER(` + col + `) = $1 THEN 0
			WHEN LOWER(` + col + `) LIKE $2 THEN 1
			ELSE 2
		END,
		` + col + ` ASC
	LIMIT $3`
}

func internalErr(err error) error { return sonarerr.Internal(err) }
