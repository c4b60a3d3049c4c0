package cms

import (
	"context"
	"net/url"
	"time"

	"github.com/samber/lo"

	"github.com/0x0BSoD/greenwood/internal/content"
	"github.com/0x0BSoD/greenwood/internal/model"
)

const (
	endpointNews          = "news"
	endpointEvents        = "events"
	endpointGallery       = "galleries"
	endpointNotifications = "notifications"
	endpointPolicies      = "policies"
	endpointRWAs          = "rwas"
	endpointTheme         = "theme"
)

func (c *Client) News(ctx context.Context) ([]model.News, error) {
	recs, err := c.fetch(ctx, endpointNews, listQuery("date:desc"), TagNews)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toNews), nil
}

func (c *Client) NewsBySlug(ctx context.Context, slug string) (model.News, error) {
	q := listQuery("")
	q.Set("filters[slug][$eq]", slug)

	recs, err := c.fetch(ctx, endpointNews, q, TagNews)
	if err != nil {
		return model.News{}, err
	}
	if len(recs) == 0 {
		return model.News{}, ErrNotFound
	}
	return c.toNews(recs[0], 0), nil
}

func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	recs, err := c.fetch(ctx, endpointEvents, listQuery("date:asc"), TagEvents)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toEvent), nil
}

// UpcomingEvents returns events starting today or later, soonest first.
func (c *Client) UpcomingEvents(ctx context.Context, now time.Time) ([]model.Event, error) {
	events, err := c.Events(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, _ := content.SplitEvents(events, now)
	return upcoming, nil
}

// PastEvents returns events that started before today, most recent first.
func (c *Client) PastEvents(ctx context.Context, now time.Time) ([]model.Event, error) {
	events, err := c.Events(ctx)
	if err != nil {
		return nil, err
	}
	_, past := content.SplitEvents(events, now)
	return past, nil
}

func (c *Client) Gallery(ctx context.Context) ([]model.GalleryItem, error) {
	recs, err := c.fetch(ctx, endpointGallery, listQuery("date:desc"), TagGallery)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toGalleryItem), nil
}

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	recs, err := c.fetch(ctx, endpointNotifications, listQuery("createdAt:desc"), TagNotifications)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toNotification), nil
}

// NotificationsCreatedSince asks the CMS for notifications created at or after since.
func (c *Client) NotificationsCreatedSince(ctx context.Context, since time.Time) ([]model.Notification, error) {
	q := listQuery("createdAt:desc")
	q.Set("filters[createdAt][$gte]", since.UTC().Format(time.RFC3339))

	recs, err := c.fetch(ctx, endpointNotifications, q, TagNotifications)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toNotification), nil
}

func (c *Client) Policies(ctx context.Context) ([]model.Policy, error) {
	recs, err := c.fetch(ctx, endpointPolicies, listQuery("title:asc"), TagPolicies)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, c.toPolicy), nil
}

func (c *Client) PolicyBySlug(ctx context.Context, slug string) (model.Policy, error) {
	q := listQuery("")
	q.Set("filters[slug][$eq]", slug)

	recs, err := c.fetch(ctx, endpointPolicies, q, TagPolicies)
	if err != nil {
		return model.Policy{}, err
	}
	if len(recs) == 0 {
		return model.Policy{}, ErrNotFound
	}
	return c.toPolicy(recs[0], 0), nil
}

func (c *Client) RWAMembers(ctx context.Context) ([]model.RWAMember, error) {
	recs, err := c.fetch(ctx, endpointRWAs, listQuery("order:asc"), TagRWAs)
	if err != nil {
		return nil, err
	}
	return content.SortRWAMembers(lo.Map(recs, c.toRWAMember)), nil
}

func (c *Client) Theme(ctx context.Context) (model.Theme, error) {
	q := url.Values{"populate": {"*"}}

	recs, err := c.fetch(ctx, endpointTheme, q, TagTheme)
	if err != nil {
		return model.Theme{}, err
	}
	if len(recs) == 0 {
		return model.Theme{}, ErrNotFound
	}
	return c.toTheme(recs[0]), nil
}

func (c *Client) toNews(r record, _ int) model.News {
	return model.News{
		ID:          r.integer("id"),
		Title:       r.str("title"),
		Slug:        r.str("slug"),
		Excerpt:     r.str("excerpt", "summary"),
		Content:     r.str("content", "body"),
		Category:    r.str("category"),
		Date:        r.date("date"),
		PublishedAt: r.date("publishedAt", "createdAt"),
		ImageURL:    r.media(c.mediaURL, "image", "cover", "coverImage"),
	}
}

func (c *Client) toEvent(r record, _ int) model.Event {
	return model.Event{
		ID:          r.integer("id"),
		Title:       r.str("title"),
		Slug:        r.str("slug"),
		Description: r.str("description"),
		Location:    r.str("location", "venue"),
		Category:    r.str("category"),
		Date:        r.date("date", "startDate"),
		EndDate:     r.date("endDate"),
		ImageURL:    r.media(c.mediaURL, "image", "cover"),
	}
}

func (c *Client) toGalleryItem(r record, _ int) model.GalleryItem {
	return model.GalleryItem{
		ID:       r.integer("id"),
		Title:    r.str("title"),
		Caption:  r.str("caption", "description"),
		Category: r.str("category"),
		Date:     r.date("date", "createdAt"),
		ImageURL: r.media(c.mediaURL, "image", "media", "photo"),
	}
}

func (c *Client) toNotification(r record, _ int) model.Notification {
	return model.Notification{
		ID:        r.integer("id"),
		Title:     r.str("title"),
		Message:   r.str("message", "description"),
		Priority:  r.str("priority"),
		Category:  r.str("category"),
		Link:      r.str("link"),
		CreatedAt: r.date("createdAt", "publishedAt"),
	}
}

func (c *Client) toPolicy(r record, _ int) model.Policy {
	return model.Policy{
		ID:          r.integer("id"),
		Title:       r.str("title"),
		Slug:        r.str("slug"),
		Summary:     r.str("summary", "excerpt"),
		Content:     r.str("content", "body"),
		DocumentURL: r.media(c.mediaURL, "document", "file"),
		UpdatedAt:   r.date("updatedAt"),
	}
}

func (c *Client) toRWAMember(r record, _ int) model.RWAMember {
	return model.RWAMember{
		ID:          r.integer("id"),
		Name:        r.str("name"),
		Designation: r.str("designation", "role"),
		Block:       r.str("block", "sector"),
		Phone:       r.str("phone"),
		Email:       r.str("email"),
		PhotoURL:    r.media(c.mediaURL, "photo", "image"),
		Order:       int(r.integer("order")),
	}
}

func (c *Client) toTheme(r record) model.Theme {
	return model.Theme{
		SiteName:        r.str("siteName", "name"),
		ShortName:       r.str("shortName"),
		Description:     r.str("description", "siteDescription"),
		PrimaryColor:    r.str("primaryColor", "themeColor"),
		BackgroundColor: r.str("backgroundColor"),
		FaviconURL:      r.media(c.mediaURL, "favicon"),
		LogoURL:         r.media(c.mediaURL, "logo"),
		AnalyticsID:     r.str("analyticsId", "googleAnalyticsId"),
		Maintenance:     r.flag("maintenanceMode"),
	}
}
