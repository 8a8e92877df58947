package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkpost/internal/models"
	"linkpost/internal/transfer"
)

func newTestLinkedIn(t *testing.T, handler http.Handler) *linkedInService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &linkedInService{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: srv.URL,
	}
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer good-token"
}

func TestVerifyAccessToken(t *testing.T) {
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "member-1"})
	}))

	valid, err := svc.VerifyAccessToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.True(t, valid)

	// An expired token is a clean false, not an error.
	valid, err = svc.VerifyAccessToken(context.Background(), "expired")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestGetProfile(t *testing.T) {
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		json.NewEncoder(w).Encode(map[string]string{
			"id":                 "member-1",
			"localizedFirstName": "Ada",
			"localizedLastName":  "Lovelace",
			"vanityName":         "ada",
		})
	}))

	profile, err := svc.GetProfile(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "member-1", profile.ID)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "ada", profile.VanityName)

	_, err = svc.GetProfile(context.Background(), "expired")
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestPublishPost(t *testing.T) {
	var captured transfer.UGCPostRequest
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			json.NewEncoder(w).Encode(map[string]string{"id": "member-1"})
		case "/ugcPosts":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:42"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	id, err := svc.PublishPost(context.Background(), "good-token", "plain post", nil)
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:42", id)
	assert.Equal(t, "urn:li:person:member-1", captured.Author)

	share := captured.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "plain post", share.ShareCommentary.Text)
	assert.Equal(t, "NONE", share.ShareMediaCategory)
	assert.Empty(t, share.Media)
}

func TestPublishPostWithLink(t *testing.T) {
	var captured transfer.UGCPostRequest
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			json.NewEncoder(w).Encode(map[string]string{"id": "member-1"})
		case "/ugcPosts":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:43"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	link := &models.LinkAttachment{
		URL:         "https://example.test/article",
		Title:       "An Article",
		Description: "Worth reading",
	}
	_, err := svc.PublishPost(context.Background(), "good-token", "with link", link)
	require.NoError(t, err)

	share := captured.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "ARTICLE", share.ShareMediaCategory)
	require.Len(t, share.Media, 1)
	assert.Equal(t, "READY", share.Media[0].Status)
	assert.Equal(t, link.URL, share.Media[0].OriginalURL)
	require.NotNil(t, share.Media[0].Title)
	assert.Equal(t, "An Article", share.Media[0].Title.Text)
	require.NotNil(t, share.Media[0].Description)
	assert.Equal(t, "Worth reading", share.Media[0].Description.Text)
}

func TestPublishPostRejected(t *testing.T) {
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			json.NewEncoder(w).Encode(map[string]string{"id": "member-1"})
		case "/ugcPosts":
			http.Error(w, `{"message":"content policy"}`, http.StatusUnprocessableEntity)
		}
	}))

	_, err := svc.PublishPost(context.Background(), "good-token", "rejected", nil)
	assert.ErrorIs(t, err, models.ErrPublish)
	assert.Contains(t, err.Error(), "422")
}

func TestGetSocialActions(t *testing.T) {
	svc := newTestLinkedIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/socialActions/urn:li:share:42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"likesSummary":    map[string]int{"totalLikes": 7},
			"commentsSummary": map[string]int{"aggregatedTotalComments": 3},
		})
	}))

	stats, err := svc.GetSocialActions(context.Background(), "good-token", "urn:li:share:42")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Likes)
	assert.Equal(t, 3, stats.Comments)
}
