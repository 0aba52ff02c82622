// Package catalog is the relational persistence layer for Sonar's
// normalized entities (users, artists, albums, tracks, playlists,
// scrobbles, ...) and their denormalized read views (album track counts,
// durations, artist album counts, preferred audio per track). Every
// mutating operation here runs inside one transaction; every foreign-key
// violation surfaces as sonarerr.NotFound at the boundary.
package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

const (
	DefaultPageCount = 20
	MaxPageCount     = 500
)

// Page normalizes a caller-supplied (offset, count) into the clamped form
// the List operations use: a missing or negative offset becomes 0, a
// missing count becomes the default, an explicit count<=0 becomes 0 (an
// empty page), and anything past MaxPageCount is clamped to it.
type Page struct {
	Offset int
	Count  int
}

func NewPage(offset, count *int) Page {
	p := Page{Offset: 0, Count: DefaultPageCount}
	if offset != nil && *offset > 0 {
		p.Offset = *offset
	}
	if count != nil {
		switch {
		case *count <= 0:
			p.Count = 0 // explicit count=0 means "return nothing"
		case *count > MaxPageCount:
			p.Count = MaxPageCount
		default:
			p.Count = *count
		}
	}
	return p
}

// Catalog wraps the shared *sql.DB handle; every operation acquires a
// connection from the pool for the lifetime of its own transaction.
type Catalog struct {
	db *sql.DB
}

func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// BeginTx starts a transaction for callers (the Audio Service, the import
// pipeline) that need to compose several catalog operations atomically.
func (c *Catalog) BeginTx() (*sql.Tx, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return tx, nil
}

// Optional models spec §4.2's patch semantics: None leaves the field
// unchanged, Some(value) sets it. The zero value is None.
type Optional[T any] struct {
	set   bool
	value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{set: true, value: v} }
func None[T any]() Optional[T]    { return Optional[T]{} }

func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// Apply assigns the new value into *dst if o is set.
func (o Optional[T]) Apply(dst *T) {
	if o.set {
		*dst = o.value
	}
}

// PropertyDiff is one entry of an Update operation's property patch list:
// Some(value) upserts key, None deletes it.
type PropertyDiff struct {
	Key   string
	Value Optional[string]
}
