package testutil

import (
	"time"

	"pix-go/internal/model"
)

// ImageMetadata returns metadata for a plain, well-formed photo: a large
// 4:3 image with no flags set. Tests mutate the result to exercise
// individual scoring inputs.
func ImageMetadata(id string, createdAt time.Time) model.AssetMetadata {
	return model.AssetMetadata{
		AssetID:     id,
		Kind:        model.MediaImage,
		PixelWidth:  4032,
		PixelHeight: 3024,
		CreatedAt:   createdAt,
	}
}
