package extsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/contentops/internal/model"
)

type recordingTarget struct {
	name string
	err  error
	mu   sync.Mutex
	got  []Update
}

func (r *recordingTarget) Name() string { return r.name }

func (r *recordingTarget) Push(_ context.Context, upd Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, upd)
	return r.err
}

type panickingTarget struct{}

func (panickingTarget) Name() string { return "panicky" }

func (panickingTarget) Push(context.Context, Update) error { panic("nil map") }

func airtableID(id string) *string { return &id }

func TestSyncerIsolatesFailures(t *testing.T) {
	var logs bytes.Buffer
	ok := &recordingTarget{name: "ok"}
	bad := &recordingTarget{name: "bad", err: errors.New("401 unauthorized")}

	s := NewSyncer(time.Second, ok, bad, panickingTarget{}).WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	failed := s.Push(context.Background(), Update{
		Article: &model.Article{ID: "article-1", Title: "Story"},
		Kind:    model.UploadKindImage,
		Value:   "https://i.ibb.co/x/1.jpg",
	})

	assert.Equal(t, 2, failed)
	assert.Len(t, ok.got, 1)
	assert.Contains(t, logs.String(), "external sync failed")
	assert.Contains(t, logs.String(), "article_id=article-1")
	assert.Contains(t, logs.String(), "https://i.ibb.co/x/1.jpg")
	assert.Contains(t, logs.String(), "external sync panicked")
	assert.Equal(t, []string{"ok", "bad", "panicky"}, s.Targets())
}

func TestSyncerNoTargets(t *testing.T) {
	assert.Equal(t, 0, NewSyncer(time.Second).Push(context.Background(), Update{Article: &model.Article{ID: "a"}}))
}

func TestPreviewTruncatesMarkup(t *testing.T) {
	long := strings.Repeat("x", 500)
	assert.Len(t, preview(Update{Kind: model.UploadKindHTMLZip, Value: long}), 123)
	assert.Equal(t, long, preview(Update{Kind: model.UploadKindImage, Value: long}))
}

func TestAirtablePush(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"id":"rec123"}`)
	}))
	defer srv.Close()

	at := NewAirtable(AirtableConfig{
		APIKey:         "pat-1",
		BaseID:         "appBase",
		Table:          "Articles",
		ImageField:     "Image",
		InstagramField: "Instagram Image",
		ContentField:   "Content",
	}).WithEndpoint(srv.URL)

	err := at.Push(context.Background(), Update{
		Article: &model.Article{ID: "a1", AirtableID: airtableID("rec123")},
		Kind:    model.UploadKindInstagramImage,
		Value:   "https://i.ibb.co/ig.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "/appBase/Articles/rec123", gotPath)
	assert.Equal(t, "Bearer pat-1", gotAuth)
	assert.Equal(t, map[string]string{"Instagram Image": "https://i.ibb.co/ig.jpg"}, gotBody["fields"])
}

func TestAirtableSkipsUnlinkedArticles(t *testing.T) {
	at := NewAirtable(AirtableConfig{ImageField: "Image"}).WithEndpoint("http://127.0.0.1:1")
	err := at.Push(context.Background(), Update{Article: &model.Article{ID: "a1"}, Kind: model.UploadKindImage, Value: "u"})
	assert.NoError(t, err)
}

func TestAirtableRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"UNKNOWN_FIELD_NAME"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	at := NewAirtable(AirtableConfig{BaseID: "b", Table: "t", ImageField: "Image"}).WithEndpoint(srv.URL)
	err := at.Push(context.Background(), Update{Article: &model.Article{ID: "a1", AirtableID: airtableID("rec1")}, Kind: model.UploadKindImage, Value: "u"})
	assert.ErrorIs(t, err, ErrAirtableRejected)
	assert.Contains(t, err.Error(), "UNKNOWN_FIELD_NAME")
}

func TestAirtableFieldMapping(t *testing.T) {
	at := NewAirtable(AirtableConfig{ImageField: "Image", InstagramField: "IG", ContentField: "Body"})
	assert.Equal(t, "Image", at.Field(model.UploadKindImage))
	assert.Equal(t, "IG", at.Field(model.UploadKindInstagramImage))
	assert.Equal(t, "Body", at.Field(model.UploadKindHTMLZip))
}

func TestDiscordPush(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL).Push(context.Background(), Update{
		Article: &model.Article{ID: "a1", Title: "Story"},
		Kind:    model.UploadKindImage,
		Value:   "https://i.ibb.co/1.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "New image uploaded for **Story**: https://i.ibb.co/1.jpg", body["content"])
}

func TestDiscordFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL).Push(context.Background(), Update{Article: &model.Article{ID: "a1"}, Kind: model.UploadKindHTMLZip})
	assert.Error(t, err)
}
