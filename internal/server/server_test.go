package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"devotion-feed/internal/feed"
	"devotion-feed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, secret string) (*Server, *feed.Store) {
	t.Helper()
	store := feed.NewStore(filepath.Join(t.TempDir(), "devotions.json"), 10)
	srv := New(store, Config{
		PageURL:       "https://dove.example/",
		Ministry:      "Dove Ministries Africa",
		WebhookSecret: secret,
	})
	return srv, store
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"message":"hello"}`)

	assert.True(t, verifyHMAC(body, "secret", sign("secret", body)))
	assert.False(t, verifyHMAC(body, "secret", sign("other", body)))
	assert.False(t, verifyHMAC(body, "secret", "sha256=zz"))
	assert.False(t, verifyHMAC(body, "secret", ""))
}

func TestLatest_FallsBackToSample(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := do(t, srv.Handler(), http.MethodGet, "/api/devotion/latest", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LatestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.SampleDevotion, resp.Devotion)
	assert.True(t, strings.HasPrefix(resp.Share.WhatsApp, "https://wa.me/?text="))
	assert.Contains(t, resp.Share.Clipboard, "- Dove Ministries Africa")
}

func TestWebhook_AddsAndServes(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	body := []byte(`{"message":"7/11/2025\nGood morning,\nProverbs 13:4\nBody.\nTY......."}`)
	rec := do(t, h, http.MethodPost, "/api/devotion", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry models.FeedEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, models.SourceWebhook, entry.Source)
	assert.Equal(t, "Proverbs 13:4", entry.Devotion.Verse)

	rec = do(t, h, http.MethodPost, "/api/devotion", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "duplicate delivery")

	rec = do(t, h, http.MethodGet, "/devotions.json", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var f models.Feed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	require.Len(t, f.Devotions, 1)
	assert.Equal(t, entry.ID, f.Devotions[0].ID)

	rec = do(t, h, http.MethodGet, "/api/devotion/latest", nil, nil)
	var resp LatestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7/11/2025", resp.Devotion.Date)
}

func TestWebhook_Errors(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/devotion", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/devotion", []byte("{"), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/devotion", []byte(`{"message":"  "}`), nil).Code)
}

func TestWebhook_Signature(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")
	h := srv.Handler()
	body := []byte(`{"message":"Body."}`)

	rec := do(t, h, http.MethodPost, "/api/devotion", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/devotion", body, map[string]string{"X-Signature-256": sign("s3cret", body)})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestParseEndpoint(t *testing.T) {
	srv, store := newTestServer(t, "")

	rec := do(t, srv.Handler(), http.MethodPost, "/api/devotion/parse", []byte("Good morning,\nPsalm 23:1\nBody."), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var d models.Devotion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "Psalm 23:1", d.Verse)
	assert.Equal(t, "Body.", d.Text)

	f, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, f.Devotions, "parse must not store")
}

func TestOversizedBody(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")
	h := srv.Handler()

	huge := []byte(`{"message":"` + strings.Repeat("a", maxBodySize) + `"}`)
	rec := do(t, h, http.MethodPost, "/api/devotion", huge, map[string]string{"X-Signature-256": sign("s3cret", huge)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/devotion/parse", bytes.Repeat([]byte("a"), maxBodySize+1), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	f, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, f.Devotions)
}
