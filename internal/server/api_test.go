package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/mailer"
	"github.com/0x0BSoD/greenwood/internal/model"
)

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	w := env.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w.Body.Bytes())["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSendEmail_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed json", body: `{"subject":`, wantErr: "Invalid JSON body"},
		{name: "wrong type", body: `{"subject":5,"text":"x"}`, wantErr: "Invalid JSON body"},
		{name: "empty object", body: `{}`, wantErr: "Subject is required"},
		{name: "missing subject", body: `{"text":"hello"}`, wantErr: "Subject is required"},
		{name: "blank subject", body: `{"subject":"   ","text":"hello"}`, wantErr: "Subject is required"},
		{name: "blank subject without content", body: `{"subject":"  "}`, wantErr: "Subject is required"},
		{name: "no content", body: `{"subject":"Hi"}`, wantErr: "Either text or html content is required"},
		{name: "empty content", body: `{"subject":"Hi","text":"","html":""}`, wantErr: "Either text or html content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubContent{})

			w := env.do(http.MethodPost, "/api/emails/send", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, decode(t, w.Body.Bytes())["error"])
			assert.Empty(t, env.sender.sent)
		})
	}
}

func TestSendEmail_Success(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	w := env.do(http.MethodPost, "/api/emails/send", `{"subject":"Water supply","html":"<p>Tomorrow</p>"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w.Body.Bytes())["success"])
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, mailer.Message{Subject: "Water supply", HTML: "<p>Tomorrow</p>"}, env.sender.sent[0])
}

func TestSendEmail_MailerFailure(t *testing.T) {
	env := newTestEnv(t, &stubContent{})
	env.sender.err = mailer.ErrMissingConfig

	w := env.do(http.MethodPost, "/api/emails/send", `{"subject":"Hi","text":"body"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send email", decode(t, w.Body.Bytes())["error"])
}

func TestUpcomingEvents(t *testing.T) {
	env := newTestEnv(t, &stubContent{
		upcoming: []model.Event{
			{ID: 1, Title: "Holi", Slug: "holi", Date: fixedNow.Add(24 * time.Hour)},
			{ID: 2, Title: "Yoga", Slug: "yoga", Date: fixedNow.Add(48 * time.Hour)},
		},
	})

	w := env.do(http.MethodGet, "/api/events/upcoming", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Events []model.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "holi", resp.Events[0].Slug)
	assert.Equal(t, "yoga", resp.Events[1].Slug)
}

func TestUpcomingEvents_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	w := env.do(http.MethodGet, "/api/events/upcoming", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())
}

func TestUpcomingEvents_CMSFailure(t *testing.T) {
	env := newTestEnv(t, &stubContent{eventsErr: errCMS})

	w := env.do(http.MethodGet, "/api/events/upcoming", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())
}

func TestNotificationsCount(t *testing.T) {
	midnight := model.StartOfDay(fixedNow)
	env := newTestEnv(t, &stubContent{
		notifications: []model.Notification{
			{ID: 1, Title: "Lift", CreatedAt: midnight.Add(time.Hour)},
			{ID: 2, Title: "Gate", CreatedAt: midnight},
			// Returned by a lenient upstream filter but created yesterday.
			{ID: 3, Title: "Old", CreatedAt: midnight.Add(-time.Minute)},
		},
	})

	w := env.do(http.MethodGet, "/api/notifications/count", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
	assert.True(t, env.content.since.Equal(midnight), "since = %s", env.content.since)
}

func TestNotificationsCount_CMSFailure(t *testing.T) {
	env := newTestEnv(t, &stubContent{notificationsErr: errCMS})

	w := env.do(http.MethodGet, "/api/notifications/count", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())
}

type revalidateResponse struct {
	Success         bool     `json:"success"`
	InvalidatedTags []string `json:"invalidatedTags"`
	InvalidatedPath *string  `json:"invalidatedPath"`
	Error           string   `json:"error"`
}

func revalidate(t *testing.T, env *testEnv, body string) (int, revalidateResponse) {
	t.Helper()
	w := env.do(http.MethodPost, "/api/revalidate", body)
	var resp revalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestRevalidate_AllExpandsToEveryTag(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	code, resp := revalidate(t, env, `{"tags":["strapi-all"]}`)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Len(t, env.store.invalidated, 13)
	assert.Equal(t, cms.AllTags(), env.store.invalidated)
	assert.Equal(t, cms.AllTags(), resp.InvalidatedTags)
	assert.Nil(t, resp.InvalidatedPath)
}

func TestRevalidate_DeduplicatesAndPassesThrough(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	code, resp := revalidate(t, env, `{"tags":["custom","strapi-news","custom"]}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"custom", "strapi-news"}, env.store.invalidated)
	assert.Equal(t, []string{"custom", "strapi-news"}, resp.InvalidatedTags)
}

func TestRevalidate_FailedTagIsSkipped(t *testing.T) {
	env := newTestEnv(t, &stubContent{})
	env.store.fail[cms.TagEvents] = true

	code, resp := revalidate(t, env, `{"tags":["strapi-all"]}`)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Len(t, env.store.invalidated, 13, "every tag is attempted once")
	assert.Len(t, resp.InvalidatedTags, 12)
	assert.NotContains(t, resp.InvalidatedTags, cms.TagEvents)
}

func TestRevalidate_Path(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	code, resp := revalidate(t, env, `{"path":"/news/"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.InvalidatedTags)
	require.NotNil(t, resp.InvalidatedPath)
	assert.Equal(t, "/news/", *resp.InvalidatedPath)
	assert.Equal(t, []string{"path:/news"}, env.store.invalidated)
}

func TestRevalidate_PathFailure(t *testing.T) {
	env := newTestEnv(t, &stubContent{})
	env.store.fail["path:/events"] = true

	code, resp := revalidate(t, env, `{"tags":["strapi-events"],"path":"/events"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{cms.TagEvents}, resp.InvalidatedTags)
	assert.Nil(t, resp.InvalidatedPath)
}

func TestRevalidate_EmptyBody(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	w := env.do(http.MethodPost, "/api/revalidate", `{}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"invalidatedTags":[],"invalidatedPath":null}`, w.Body.String())
}

func TestRevalidate_MalformedBody(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	code, resp := revalidate(t, env, `{"tags":"strapi-all"}`)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, env.store.invalidated)
}

func TestAPI_CORSPreflight(t *testing.T) {
	env := newTestEnv(t, &stubContent{})

	req := newPreflight("/api/revalidate")
	w := env.serve(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMailerErrorsAreOpaque(t *testing.T) {
	env := newTestEnv(t, &stubContent{})
	env.sender.err = errors.New("dial tcp: connection refused")

	w := env.do(http.MethodPost, "/api/emails/send", `{"subject":"Hi","text":"body"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
