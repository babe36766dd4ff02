package index

import (
	"math"

	"pix-go/internal/model"
)

// DisqualifiedScore marks hidden assets. They stay in the index so deletion
// detection and future un-hiding remain cheap, but they sort after every
// ranked result and are filtered from queries explicitly.
const DisqualifiedScore = math.MinInt64

const (
	screenshotPenalty    = -500
	lowResolutionPenalty = -100
	adjustmentsBonus     = 150
	depthEffectBonus     = 300
	burstPickBonus       = 50
	burstNoPickPenalty   = -50
	panoramaPenalty      = -200
	normalAspectBonus    = 20
	locationBonus        = 10

	minGoodDimension = 1500
	maxAspectRatio   = 2.5
)

// Score assigns a desirability score to an asset from its structural
// metadata alone. Pure and total: identical metadata always yields an
// identical score, which keeps sort order stable and rebuilds idempotent.
//
// All applicable bonuses and penalties stack. Screenshots and ultra-wide
// panoramas make poor collage material; edited and depth-effect shots
// correlate with user-curated, people-containing content; bursts are
// penalized unless the platform already picked a best frame.
func Score(m model.AssetMetadata) int64 {
	if m.Hidden {
		return DisqualifiedScore
	}

	var score int64

	if m.Screenshot {
		score += screenshotPenalty
	}

	minDim, maxDim := m.PixelWidth, m.PixelHeight
	if minDim > maxDim {
		minDim, maxDim = maxDim, minDim
	}
	if minDim < minGoodDimension {
		score += lowResolutionPenalty
	}

	if m.Adjustments {
		score += adjustmentsBonus
	}
	if m.DepthEffect {
		score += depthEffectBonus
	}

	if m.Burst {
		if m.BurstUserPick || m.BurstAutoPick {
			score += burstPickBonus
		} else {
			score += burstNoPickPenalty
		}
	}

	// Aspect ratio rows only apply when a ratio is computable.
	if minDim > 0 {
		if float64(maxDim)/float64(minDim) > maxAspectRatio {
			score += panoramaPenalty
		} else {
			score += normalAspectBonus
		}
	}

	if m.HasLocation {
		score += locationBonus
	}

	return score
}

// NewEntry derives the index entry for an asset: flags carried over, the
// creation year precomputed so year queries never touch timestamps, and the
// score fixed at index time.
func NewEntry(m model.AssetMetadata) model.IndexEntry {
	return model.IndexEntry{
		AssetID:       m.AssetID,
		Kind:          m.Kind,
		Hidden:        m.Hidden,
		Screenshot:    m.Screenshot,
		DepthEffect:   m.DepthEffect,
		Adjustments:   m.Adjustments,
		Burst:         m.Burst,
		BurstUserPick: m.BurstUserPick,
		BurstAutoPick: m.BurstAutoPick,
		PixelWidth:    m.PixelWidth,
		PixelHeight:   m.PixelHeight,
		HasLocation:   m.HasLocation,
		Latitude:      m.Latitude,
		Longitude:     m.Longitude,
		CreationYear:  m.CreatedAt.Year(),
		Places:        m.Places,
		People:        m.People,
		Score:         Score(m),
	}
}
