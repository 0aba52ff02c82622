// Package id implements Sonar's opaque external identifiers: a namespace
// tag plus a base36-encoded internal integer key, e.g. "artist_2n9c". Every
// public operation traffics in these opaque strings; internal integers are
// only used for joins.
package id

import (
	"strconv"
	"strings"

	"sonar/internal/sonarerr"
)

// Namespace tags the entity kind an opaque ID refers to.
type Namespace string

const (
	NamespaceUser         Namespace = "user"
	NamespaceImage        Namespace = "image"
	NamespaceAudio        Namespace = "audio"
	NamespaceArtist       Namespace = "artist"
	NamespaceAlbum        Namespace = "album"
	NamespaceTrack        Namespace = "track"
	NamespacePlaylist     Namespace = "playlist"
	NamespaceScrobble     Namespace = "scrobble"
	NamespaceSubscription Namespace = "subscription"
)

var validNamespaces = map[Namespace]bool{
	NamespaceUser: true, NamespaceImage: true, NamespaceAudio: true,
	NamespaceArtist: true, NamespaceAlbum: true, NamespaceTrack: true,
	NamespacePlaylist: true, NamespaceScrobble: true, NamespaceSubscription: true,
}

// Encode produces the opaque external ID for an internal key within ns.
func Encode(ns Namespace, key int64) string {
	return string(ns) + "_" + strconv.FormatInt(key, 36)
}

// Decode parses an opaque ID, requiring it belong to want's namespace.
// Returns sonarerr.InvalidID when the namespace doesn't match or the ID is
// malformed.
func Decode(want Namespace, opaque string) (int64, error) {
	ns, key, err := split(opaque)
	if err != nil {
		return 0, err
	}
	if ns != want {
		return 0, sonarerr.InvalidID(string(want))
	}
	return key, nil
}

// DecodeAny parses an opaque ID without constraining its namespace, for
// operations (favorites, pins, properties, genres) that accept any of a
// set of namespaces.
func DecodeAny(opaque string) (Namespace, int64, error) {
	return split(opaque)
}

func split(opaque string) (Namespace, int64, error) {
	idx := strings.LastIndexByte(opaque, '_')
	if idx <= 0 || idx == len(opaque)-1 {
		return "", 0, sonarerr.InvalidID("well-formed namespace_key")
	}
	ns := Namespace(opaque[:idx])
	if !validNamespaces[ns] {
		return "", 0, sonarerr.InvalidID("recognized namespace")
	}
	key, err := strconv.ParseInt(opaque[idx+1:], 36, 64)
	if err != nil {
		return "", 0, sonarerr.InvalidID("base36 key")
	}
	return ns, key, nil
}
