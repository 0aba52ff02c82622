// Package social implements Sonar's Favorites/Pins service layer: thin,
// idempotent wrappers over the catalog's favorites and pins tables.
// FavoriteAdd validates the target namespace before writing; removal and
// pins accept any namespace.
package social

import (
	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

// favoritableNamespaces restricts favoriteAdd/Remove's item_id to
// {artist, album, track, playlist}, per spec §4.9.
var favoritableNamespaces = map[id.Namespace]bool{
	id.NamespaceArtist:   true,
	id.NamespaceAlbum:    true,
	id.NamespaceTrack:    true,
	id.NamespacePlaylist: true,
}

type Service struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Service {
	return &Service{cat: cat}
}

func (s *Service) FavoriteAdd(userID int64, itemID string) error {
	ns, key, err := id.DecodeAny(itemID)
	if err != nil {
		return err
	}
	if !favoritableNamespaces[ns] {
		return sonarerr.InvalidArgument("item_id", "namespace not favoritable")
	}
	return s.cat.AddFavorite(userID, ns, key)
}

func (s *Service) FavoriteRemove(userID int64, itemID string) error {
	ns, key, err := id.DecodeAny(itemID)
	if err != nil {
		return err
	}
	return s.cat.RemoveFavorite(userID, ns, key)
}

func (s *Service) FavoritesList(userID int64, namespace id.Namespace, page catalog.Page) ([]catalog.Favorite, error) {
	return s.cat.ListFavorites(userID, namespace, page)
}

// PinSet pins every itemID for userID; PinUnset unpins them. Both are
// batch-idempotent: they replace nothing, just set/unset the listed ids.
func (s *Service) PinSet(userID int64, itemIDs []string) error {
	byNamespace, err := groupByNamespace(itemIDs)
	if err != nil {
		return err
	}
	for ns, keys := range byNamespace {
		if err := s.cat.SetPins(userID, ns, keys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) PinUnset(userID int64, itemIDs []string) error {
	byNamespace, err := groupByNamespace(itemIDs)
	if err != nil {
		return err
	}
	for ns, keys := range byNamespace {
		if err := s.cat.UnsetPins(userID, ns, keys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) PinsList(userID int64, namespace id.Namespace, page catalog.Page) ([]catalog.Pin, error) {
	return s.cat.ListPins(userID, namespace, page)
}

func groupByNamespace(itemIDs []string) (map[id.Namespace][]int64, error) {
	out := map[id.Namespace][]int64{}
	for _, itemID := range itemIDs {
		ns, key, err := id.DecodeAny(itemID)
		if err != nil {
			return nil, err
		}
		out[ns] = append(out[ns], key)
	}
	return out, nil
}
