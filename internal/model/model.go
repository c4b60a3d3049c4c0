// Package model defines the read-only content records served by the CMS: News, Event, GalleryItem, Notification, Policy, RWAMember and Theme. The CMS owns them; this service only fetches, filters and renders them.
package model

import (
	"strings"
	"time"
)

const PriorityUrgent = "urgent"

type News struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Content     string    `json:"content,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	PublishedAt time.Time `json:"publishedAt"`
	ImageURL    string    `json:"imageUrl,omitempty"`
}

// DisplayDate prefers the editorial date over the publish timestamp.
func (n News) DisplayDate() time.Time {
	if !n.Date.IsZero() {
		return n.Date
	}
	return n.PublishedAt
}

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	EndDate     time.Time `json:"endDate,omitzero"`
	ImageURL    string    `json:"imageUrl,omitempty"`
}

// IsUpcoming reports whether the event starts today or later, in now's location.
func (e Event) IsUpcoming(now time.Time) bool {
	return !e.Date.Before(StartOfDay(now))
}

type GalleryItem struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Caption  string    `json:"caption,omitempty"`
	Category string    `json:"category,omitempty"`
	Date     time.Time `json:"date,omitzero"`
	ImageURL string    `json:"imageUrl"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Category  string    `json:"category,omitempty"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n Notification) IsUrgent() bool {
	return strings.EqualFold(strings.TrimSpace(n.Priority), PriorityUrgent)
}

type Policy struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	DocumentURL string    `json:"documentUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RWAMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	Block       string `json:"block,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Order       int    `json:"order"`
}

type Theme struct {
	SiteName        string `json:"siteName"`
	ShortName       string `json:"shortName,omitempty"`
	Description     string `json:"description,omitempty"`
	PrimaryColor    string `json:"primaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	FaviconURL      string `json:"faviconUrl,omitempty"`
	LogoURL         string `json:"logoUrl,omitempty"`
	AnalyticsID     string `json:"analyticsId,omitempty"`
	Maintenance     bool   `json:"maintenance"`
}

// StartOfDay returns local midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLogEntry records one relay attempt.
type EmailLogEntry struct {
	ID        int64
	Subject   string
	Recipient string
	Status    string
	Error     string
	CreatedAt time.Time
}
