// Package content holds the small amount of logic between CMS records and
// rendered pages: ordering, date filters and rich-text handling.
package content

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/0x0BSoD/greenwood/internal/model"
)

// SortNotifications returns a copy ordered urgent first, then by descending
// CreatedAt within each group. Equal items keep their input order.
func SortNotifications(in []model.Notification) []model.Notification {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b model.Notification) int {
		if a.IsUrgent() != b.IsUrgent() {
			if a.IsUrgent() {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func UrgentNotifications(in []model.Notification) []model.Notification {
	return lo.Filter(in, func(n model.Notification, _ int) bool {
		return n.IsUrgent()
	})
}

// CountCreatedToday counts notifications created at or after local midnight of now.
func CountCreatedToday(in []model.Notification, now time.Time) int {
	midnight := model.StartOfDay(now)
	return lo.CountBy(in, func(n model.Notification) bool {
		return !n.CreatedAt.Before(midnight)
	})
}
