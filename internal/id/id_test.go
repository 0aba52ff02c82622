package id

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ns   Namespace
		key  int64
	}{
		{"artist zero", NamespaceArtist, 0},
		{"track small", NamespaceTrack, 42},
		{"playlist large", NamespacePlaylist, 123456789},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opaque := Encode(tt.ns, tt.key)
			got, err := Decode(tt.ns, opaque)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", opaque, err)
			}
			if got != tt.key {
				t.Errorf("Decode(%q) = %d, want %d", opaque, got, tt.key)
			}
		})
	}
}

func TestDecodeWrongNamespace(t *testing.T) {
	opaque := Encode(NamespaceArtist, 7)
	if _, err := Decode(NamespaceAlbum, opaque); err == nil {
		t.Errorf("Decode with mismatched namespace should fail, got nil error")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []string{
		"",
		"noseparator",
		"artist_",
		"_42",
		"bogus_42",
		"artist_notbase36!!",
	}
	for _, opaque := range tests {
		if _, err := Decode(NamespaceArtist, opaque); err == nil {
			t.Errorf("Decode(%q) should fail, got nil error", opaque)
		}
	}
}

func TestDecodeAny(t *testing.T) {
	opaque := Encode(NamespaceAlbum, 99)
	ns, key, err := DecodeAny(opaque)
	if err != nil {
		t.Fatalf("DecodeAny(%q) error: %v", opaque, err)
	}
	if ns != NamespaceAlbum || key != 99 {
		t.Errorf("DecodeAny(%q) = (%v, %d), want (%v, 99)", opaque, ns, key, NamespaceAlbum)
	}
}
