package cms

import "github.com/samber/lo"

// Cache tags attached to CMS responses, one per content type.
const (
	TagTheme         = "strapi-theme"
	TagHomepage      = "strapi-homepage"
	TagNews          = "strapi-news"
	TagEvents        = "strapi-events"
	TagGallery       = "strapi-gallery"
	TagNotifications = "strapi-notifications"
	TagPolicies      = "strapi-policies"
	TagRWAs          = "strapi-rwas"
	TagAbout         = "strapi-about"
	TagContact       = "strapi-contact"
	TagAmenities     = "strapi-amenities"
	TagProjects      = "strapi-projects"
	TagFAQs          = "strapi-faqs"

	// TagAll is an alias that expands to every tag above.
	TagAll = "strapi-all"
)

var allTags = []string{
	TagTheme,
	TagHomepage,
	TagNews,
	TagEvents,
	TagGallery,
	TagNotifications,
	TagPolicies,
	TagRWAs,
	TagAbout,
	TagContact,
	TagAmenities,
	TagProjects,
	TagFAQs,
}

// AllTags returns the fixed list TagAll expands to.
func AllTags() []string {
	return append([]string(nil), allTags...)
}

// ExpandTags replaces TagAll with AllTags, drops blanks and duplicates and
// keeps first-seen order.
func ExpandTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if tag == TagAll {
			out = append(out, allTags...)
			continue
		}
		if tag != "" {
			out = append(out, tag)
		}
	}
	return lo.Uniq(out)
}
