// Package metadata implements Sonar's Metadata Enrichment coordinator:
// fan out to named MetadataProvider capabilities, merge their patches
// field-by-field (first non-empty value wins), and apply the merge to
// the catalog.
package metadata

import (
	"bytes"
	"context"
	"database/sql"
	"log"
	"time"

	"sonar/internal/capability"
	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/image"
	"sonar/internal/sonarerr"
)

const providerTimeout = 15 * time.Second

// Kind selects which catalog table MetadataFetch applies its merged
// patch to.
type Kind string

const (
	KindArtist Kind = "artist"
	KindAlbum  Kind = "album"
	KindTrack  Kind = "track"
)

type Registry struct {
	cat       *catalog.Catalog
	images    *image.Service
	providers map[string]capability.MetadataProvider
	order     []string
}

func NewRegistry(cat *catalog.Catalog, images *image.Service) *Registry {
	return &Registry{cat: cat, images: images, providers: map[string]capability.MetadataProvider{}}
}

// Register adds a provider under a stable name; registration order is
// the fan-out/merge-precedence order.
func (r *Registry) Register(p capability.MetadataProvider) {
	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// inOrder returns the registered providers named in names, in
// registration order.
func (r *Registry) inOrder(names []string) []string {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, n := range r.order {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

// Fetch fans out to the named providers (or every registered provider
// if names is empty), merges their patches field-by-field in
// registration order, and applies the result to the entity.
func (r *Registry) Fetch(ctx context.Context, kind Kind, identifier int64, names []string, fields []string) (capability.MetadataPatch, error) {
	name, props, err := r.entityView(kind, identifier)
	if err != nil {
		return capability.MetadataPatch{}, err
	}

	selected := r.order
	if len(names) > 0 {
		selected = r.inOrder(names)
	}

	merged := capability.MetadataPatch{Properties: map[string]string{}}
	for _, pname := range selected {
		p, ok := r.providers[pname]
		if !ok {
			continue
		}
		patch, err := r.fetchOne(ctx, p, name, props, fields)
		if err != nil {
			log.Printf("metadata: provider %s failed: %v", pname, err)
			continue
		}
		mergePatch(&merged, patch)
	}

	if err := r.apply(kind, identifier, merged); err != nil {
		return capability.MetadataPatch{}, err
	}
	return merged, nil
}

func (r *Registry) fetchOne(ctx context.Context, p capability.MetadataProvider, name string, props map[string]string, fields []string) (capability.MetadataPatch, error) {
	cctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	_ = props // providers read current properties via name only in this adapter layer
	return p.Fetch(cctx, name, fields)
}

// mergePatch copies every non-empty field of src into dst that dst does
// not already hold — first provider wins, per spec §4.11.
func mergePatch(dst *capability.MetadataPatch, src capability.MetadataPatch) {
	if dst.Name == "" && src.Name != "" {
		dst.Name = src.Name
	}
	if len(dst.CoverBytes) == 0 && len(src.CoverBytes) > 0 {
		dst.CoverBytes = src.CoverBytes
		dst.CoverMime = src.CoverMime
	}
	for k, v := range src.Properties {
		if _, exists := dst.Properties[k]; !exists && v != "" {
			dst.Properties[k] = v
		}
	}
	if len(src.Tracks) > 0 {
		if dst.Tracks == nil {
			dst.Tracks = map[string]capability.MetadataPatch{}
		}
		for trackName, tp := range src.Tracks {
			if existing, ok := dst.Tracks[trackName]; ok {
				mergePatch(&existing, tp)
				dst.Tracks[trackName] = existing
			} else {
				dst.Tracks[trackName] = tp
			}
		}
	}
}

func (r *Registry) entityView(kind Kind, identifier int64) (name string, props map[string]string, err error) {
	switch kind {
	case KindArtist:
		a, err := r.cat.GetArtist(identifier)
		if err != nil {
			return "", nil, err
		}
		name = a.Name
	case KindAlbum:
		a, err := r.cat.GetAlbum(identifier)
		if err != nil {
			return "", nil, err
		}
		name = a.Name
	case KindTrack:
		t, err := r.cat.GetTrack(identifier)
		if err != nil {
			return "", nil, err
		}
		name = t.Name
	default:
		return "", nil, sonarerr.InvalidArgument("kind", "unrecognized metadata kind")
	}

	ns := kindNamespace(kind)
	props, err = r.cat.ListProperties(ns, identifier)
	if err != nil {
		return "", nil, err
	}
	return name, props, nil
}

func (r *Registry) apply(kind Kind, identifier int64, patch capability.MetadataPatch) error {
	ns := kindNamespace(kind)
	for k, v := range patch.Properties {
		if err := r.cat.SetProperty(ns, identifier, k, sql.NullInt64{}, v); err != nil {
			return err
		}
	}

	if patch.Name != "" {
		if err := r.renameEntity(kind, identifier, patch.Name); err != nil {
			return err
		}
	}

	if len(patch.CoverBytes) > 0 && r.images != nil {
		img, err := r.images.Create(bytes.NewReader(patch.CoverBytes))
		if err != nil {
			return err
		}
		if err := r.setCover(kind, identifier, img.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) renameEntity(kind Kind, identifier int64, name string) error {
	switch kind {
	case KindArtist:
		_, err := r.cat.UpdateArtist(identifier, catalog.UpdateArtistPatch{Name: catalog.Some(name)})
		return err
	case KindAlbum:
		_, err := r.cat.UpdateAlbum(identifier, catalog.UpdateAlbumPatch{Name: catalog.Some(name)})
		return err
	case KindTrack:
		_, err := r.cat.UpdateTrack(identifier, catalog.UpdateTrackPatch{Name: catalog.Some(name)})
		return err
	}
	return nil
}

func (r *Registry) setCover(kind Kind, identifier, imageID int64) error {
	cover := sql.NullInt64{Int64: imageID, Valid: true}
	switch kind {
	case KindArtist:
		_, err := r.cat.UpdateArtist(identifier, catalog.UpdateArtistPatch{CoverImageID: catalog.Some(cover)})
		return err
	case KindAlbum:
		_, err := r.cat.UpdateAlbum(identifier, catalog.UpdateAlbumPatch{CoverImageID: catalog.Some(cover)})
		return err
	case KindTrack:
		_, err := r.cat.UpdateTrack(identifier, catalog.UpdateTrackPatch{CoverImageID: catalog.Some(cover)})
		return err
	}
	return nil
}

// AlbumTracks implements MetadataAlbumTracks: fetches a per-track patch
// for every track on the album without applying any of them, leaving
// the decision to the caller.
func (r *Registry) AlbumTracks(ctx context.Context, albumID int64, names []string, fields []string) (map[int64]capability.MetadataPatch, error) {
	tracks, err := r.cat.ListTracksByAlbum(albumID, catalog.Page{Count: 10000})
	if err != nil {
		return nil, err
	}

	selected := r.order
	if len(names) > 0 {
		selected = r.inOrder(names)
	}

	out := map[int64]capability.MetadataPatch{}
	for _, t := range tracks {
		merged := capability.MetadataPatch{Properties: map[string]string{}}
		for _, pname := range selected {
			p, ok := r.providers[pname]
			if !ok {
				continue
			}
			patch, err := r.fetchOne(ctx, p, t.Name, nil, fields)
			if err != nil {
				log.Printf("metadata: provider %s failed for track %d: %v", pname, t.ID, err)
				continue
			}
			mergePatch(&merged, patch)
		}
		out[t.ID] = merged
	}
	return out, nil
}

func kindNamespace(kind Kind) id.Namespace {
	switch kind {
	case KindArtist:
		return id.NamespaceArtist
	case KindAlbum:
		return id.NamespaceAlbum
	default:
		return id.NamespaceTrack
	}
}
