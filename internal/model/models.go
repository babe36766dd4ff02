package model

import "time"

// SchemaVersion identifies the persisted payload format. Payloads written
// with a different version are discarded on load and rebuilt from the
// library.
const SchemaVersion = 1

// MediaKind classifies an asset by its media type. Only images participate
// in scoring and queries.
type MediaKind uint8

const (
	MediaOther MediaKind = iota
	MediaImage
	MediaVideo
)

// String returns the string representation of the media kind.
func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "other"
	}
}

// AssetMetadata is the fixed boundary struct populated by a Library
// implementation. The scoring engine and index entries depend only on this,
// never on the source platform's types.
type AssetMetadata struct {
	AssetID       string
	Kind          MediaKind
	Hidden        bool
	Screenshot    bool
	DepthEffect   bool
	Adjustments   bool
	Burst         bool
	BurstUserPick bool
	BurstAutoPick bool
	PixelWidth    uint16
	PixelHeight   uint16
	HasLocation   bool
	Latitude      float32
	Longitude     float32
	CreatedAt     time.Time
	Places        []string
	People        []string
}

// IndexEntry is the compact derived record for one asset. Immutable once
// computed; replaced wholesale when the asset changes.
type IndexEntry struct {
	AssetID       string    `json:"asset_id"`
	Kind          MediaKind `json:"kind"`
	Hidden        bool      `json:"hidden,omitempty"`
	Screenshot    bool      `json:"screenshot,omitempty"`
	DepthEffect   bool      `json:"depth_effect,omitempty"`
	Adjustments   bool      `json:"adjustments,omitempty"`
	Burst         bool      `json:"burst,omitempty"`
	BurstUserPick bool      `json:"burst_user_pick,omitempty"`
	BurstAutoPick bool      `json:"burst_auto_pick,omitempty"`
	PixelWidth    uint16    `json:"pixel_width"`
	PixelHeight   uint16    `json:"pixel_height"`
	HasLocation   bool      `json:"has_location,omitempty"`
	Latitude      float32   `json:"latitude,omitempty"`
	Longitude     float32   `json:"longitude,omitempty"`
	CreationYear  int       `json:"creation_year"`
	Places        []string  `json:"places,omitempty"`
	People        []string  `json:"people,omitempty"`
	Score         int64     `json:"score"`
}

// AssetRef is the minimal handle handed to consumers. It carries the stable
// identifier plus enough metadata for a renderer to fetch pixels later; the
// index itself never touches pixel data.
type AssetRef struct {
	AssetID      string
	PixelWidth   uint16
	PixelHeight  uint16
	CreationYear int
	Score        int64
}

// ChangeSet is one change notification from the library: identifier sets for
// assets that were inserted, updated, or deleted since the last notification.
type ChangeSet struct {
	Inserted []string
	Updated  []string
	Deleted  []string
}

// Empty reports whether the change set carries no identifiers.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// IndexPayload is the persisted mirror of the index store. Entries appear in
// insertion order so a restored store keeps the same deterministic tie order
// as the store that wrote it.
type IndexPayload struct {
	SchemaVersion   int          `json:"schema_version"`
	LastFullBuildAt time.Time    `json:"last_full_build_at"`
	Entries         []IndexEntry `json:"entries"`
}
