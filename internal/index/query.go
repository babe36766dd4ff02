package index

import (
	"sort"

	"pix-go/internal/model"
)

// MaxTopItems caps ranked query results. Ten is the most a downstream
// collage ever consumes.
const MaxTopItems = 10

// Filter selects entries for a ranked query. Zero-valued fields impose no
// constraint; set fields must all match.
type Filter struct {
	Year   int
	Place  string
	Person string
}

func (f Filter) matches(e model.IndexEntry) bool {
	if f.Year != 0 && e.CreationYear != f.Year {
		return false
	}
	if f.Place != "" && !containsLabel(e.Places, f.Place) {
		return false
	}
	if f.Person != "" && !containsLabel(e.People, f.Person) {
		return false
	}
	return true
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// TopItems returns the best-scoring visible image entries matching the
// filter, at most limit (defaulted and capped at MaxTopItems). Ties keep
// insertion order, which is deterministic across rebuilds. Before the first
// full build the result is empty; callers trigger a build and retry.
func (s *Service) TopItems(f Filter, limit int) []model.AssetRef {
	snap := s.store.Snapshot()
	if !snap.Ready() {
		return nil
	}
	if limit <= 0 || limit > MaxTopItems {
		limit = MaxTopItems
	}

	var candidates []model.IndexEntry
	snap.Each(func(e model.IndexEntry) bool {
		// Hidden entries already carry the disqualified score, but the
		// explicit filter keeps the contract robust.
		if e.Kind != model.MediaImage || e.Hidden {
			return true
		}
		if f.matches(e) {
			candidates = append(candidates, e)
		}
		return true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	refs := make([]model.AssetRef, len(candidates))
	for i, e := range candidates {
		refs[i] = model.AssetRef{
			AssetID:      e.AssetID,
			PixelWidth:   e.PixelWidth,
			PixelHeight:  e.PixelHeight,
			CreationYear: e.CreationYear,
			Score:        e.Score,
		}
	}
	return refs
}

// AvailableYears returns the distinct creation years among visible image
// entries, newest first.
func (s *Service) AvailableYears() []int {
	snap := s.store.Snapshot()
	if !snap.Ready() {
		return nil
	}

	seen := make(map[int]bool)
	snap.Each(func(e model.IndexEntry) bool {
		if e.Kind == model.MediaImage && !e.Hidden {
			seen[e.CreationYear] = true
		}
		return true
	})

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// AvailablePlaces returns the distinct place labels among visible image
// entries, ascending.
func (s *Service) AvailablePlaces() []string {
	return s.distinctLabels(func(e model.IndexEntry) []string { return e.Places })
}

// AvailablePeople returns the distinct person labels among visible image
// entries, ascending.
func (s *Service) AvailablePeople() []string {
	return s.distinctLabels(func(e model.IndexEntry) []string { return e.People })
}

func (s *Service) distinctLabels(labels func(e model.IndexEntry) []string) []string {
	snap := s.store.Snapshot()
	if !snap.Ready() {
		return nil
	}

	seen := make(map[string]bool)
	snap.Each(func(e model.IndexEntry) bool {
		if e.Kind == model.MediaImage && !e.Hidden {
			for _, l := range labels(e) {
				seen[l] = true
			}
		}
		return true
	})

	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
