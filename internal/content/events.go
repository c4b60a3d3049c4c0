package content

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/0x0BSoD/greenwood/internal/model"
)

// SplitEvents partitions events at local midnight of now. Upcoming events are
// soonest first, past events most recent first.
func SplitEvents(events []model.Event, now time.Time) (upcoming, past []model.Event) {
	upcoming, past = lo.FilterReject(events, func(e model.Event, _ int) bool {
		return e.IsUpcoming(now)
	})

	slices.SortStableFunc(upcoming, func(a, b model.Event) int {
		return a.Date.Compare(b.Date)
	})
	slices.SortStableFunc(past, func(a, b model.Event) int {
		return b.Date.Compare(a.Date)
	})

	return upcoming, past
}

// GalleryCategories lists the distinct non-empty categories in first-seen order.
func GalleryCategories(items []model.GalleryItem) []string {
	return lo.Uniq(lo.FilterMap(items, func(it model.GalleryItem, _ int) (string, bool) {
		return it.Category, it.Category != ""
	}))
}

func FilterGallery(items []model.GalleryItem, category string) []model.GalleryItem {
	if category == "" {
		return items
	}
	return lo.Filter(items, func(it model.GalleryItem, _ int) bool {
		return it.Category == category
	})
}

// SortRWAMembers orders members by their CMS display order, then by name.
func SortRWAMembers(in []model.RWAMember) []model.RWAMember {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b model.RWAMember) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}
