package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/mailer"
	"github.com/0x0BSoD/greenwood/internal/model"
	"github.com/0x0BSoD/greenwood/internal/server"
	"github.com/0x0BSoD/greenwood/internal/web"
)

var (
	fixedNow = time.Date(2026, time.May, 2, 15, 30, 0, 0, time.Local)
	errCMS   = errors.New("cms unreachable")
)

type stubContent struct {
	mu    sync.Mutex
	calls map[string]int
	since time.Time

	theme    model.Theme
	themeErr error

	news    []model.News
	newsErr error

	upcoming  []model.Event
	past      []model.Event
	eventsErr error

	gallery    []model.GalleryItem
	galleryErr error

	notifications    []model.Notification
	notificationsErr error

	policies    []model.Policy
	policiesErr error

	members    []model.RWAMember
	membersErr error
}

func (s *stubContent) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

func (s *stubContent) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubContent) News(context.Context) ([]model.News, error) {
	s.hit("news")
	return s.news, s.newsErr
}

func (s *stubContent) NewsBySlug(_ context.Context, slug string) (model.News, error) {
	s.hit("news_by_slug")
	if s.newsErr != nil {
		return model.News{}, s.newsErr
	}
	for _, n := range s.news {
		if n.Slug == slug {
			return n, nil
		}
	}
	return model.News{}, cms.ErrNotFound
}

func (s *stubContent) UpcomingEvents(context.Context, time.Time) ([]model.Event, error) {
	s.hit("upcoming_events")
	return s.upcoming, s.eventsErr
}

func (s *stubContent) PastEvents(context.Context, time.Time) ([]model.Event, error) {
	s.hit("past_events")
	return s.past, s.eventsErr
}

func (s *stubContent) Gallery(context.Context) ([]model.GalleryItem, error) {
	s.hit("gallery")
	return s.gallery, s.galleryErr
}

func (s *stubContent) Notifications(context.Context) ([]model.Notification, error) {
	s.hit("notifications")
	return s.notifications, s.notificationsErr
}

func (s *stubContent) NotificationsCreatedSince(_ context.Context, since time.Time) ([]model.Notification, error) {
	s.hit("notifications_since")
	s.mu.Lock()
	s.since = since
	s.mu.Unlock()
	return s.notifications, s.notificationsErr
}

func (s *stubContent) Policies(context.Context) ([]model.Policy, error) {
	s.hit("policies")
	return s.policies, s.policiesErr
}

func (s *stubContent) PolicyBySlug(_ context.Context, slug string) (model.Policy, error) {
	s.hit("policy_by_slug")
	if s.policiesErr != nil {
		return model.Policy{}, s.policiesErr
	}
	for _, p := range s.policies {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Policy{}, cms.ErrNotFound
}

func (s *stubContent) RWAMembers(context.Context) ([]model.RWAMember, error) {
	s.hit("rwa")
	return s.members, s.membersErr
}

func (s *stubContent) Theme(context.Context) (model.Theme, error) {
	s.hit("theme")
	return s.theme, s.themeErr
}

type stubSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// recordingStore records every tag invalidation and fails the tags in fail.
type recordingStore struct {
	cache.Store

	mu          sync.Mutex
	invalidated []string
	fail        map[string]bool
}

func (r *recordingStore) InvalidateTag(ctx context.Context, tag string) (int, error) {
	r.mu.Lock()
	r.invalidated = append(r.invalidated, tag)
	fail := r.fail[tag]
	r.mu.Unlock()

	if fail {
		return 0, errors.New("store unavailable")
	}
	return r.Store.InvalidateTag(ctx, tag)
}

type stubAlerter struct {
	mu   sync.Mutex
	msgs []string
}

func (a *stubAlerter) Notify(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

type testEnv struct {
	content *stubContent
	sender  *stubSender
	store   *recordingStore
	alerter *stubAlerter
	router  *gin.Engine
}

func newTestEnv(t *testing.T, content *stubContent) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := web.NewRenderer(web.Templates(), zap.NewNop())
	require.NoError(t, err)

	mem := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })

	env := &testEnv{
		content: content,
		sender:  &stubSender{},
		store:   &recordingStore{Store: mem, fail: map[string]bool{}},
		alerter: &stubAlerter{},
	}

	srv := server.New(env.content, env.store, env.sender, renderer, env.alerter, zap.NewNop(), server.Options{
		PageTTL: time.Hour,
		Now:     func() time.Time { return fixedNow },
	})
	env.router = srv.Router()

	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newPreflight(target string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, target, nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
