package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-suggester/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func jsonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractDishName(t *testing.T) {
	tests := map[string]string{
		"Cách làm trứng chiên cà chua - Điện Máy Xanh": "Cách làm trứng chiên cà chua",
		"Phở bò | Món ngon mỗi ngày":                     "Phở bò",
		"Bún chả: công thức chuẩn Hà Nội":                "Bún chả",
		"  Cơm tấm  ":                                    "Cơm tấm",
	}
	for title, want := range tests {
		assert.Equal(t, want, ExtractDishName(title), title)
	}
}

func TestWebClient_Search(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "2", r.URL.Query().Get("num"))
		_, _ = w.Write([]byte(`{"organic_results":[
			{"title":"Trứng chiên - Blog","link":"https://www.blog.vn/trung","snippet":"ngon"},
			{"title":"","link":"https://x.vn"},
			{"title":"Canh cà chua","link":"https://y.vn/canh","snippet":"canh"},
			{"title":"Extra","link":"https://z.vn"}]}`))
	})
	c := NewWebClient(config.WebSearchConfig{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, "test-agent", zaptest.NewLogger(t))

	results, err := c.Search(context.Background(), "trứng cà chua", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Trứng chiên", results[0].DishName())
	assert.Equal(t, "https://y.vn/canh", results[1].Link)
}

func TestWebClient_SearchImages(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
		_, _ = w.Write([]byte(`{"images_results":[{"original":"/relative.jpg"},{"original":"https://img.vn/pho.jpg"}]}`))
	})
	c := NewWebClient(config.WebSearchConfig{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, "", nil)

	urls, err := c.SearchImages(context.Background(), "phở local cuisine", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.vn/pho.jpg"}, urls)
}

func TestWebClient_Errors(t *testing.T) {
	_, err := NewWebClient(config.WebSearchConfig{}, "", nil).Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	})
	c := NewWebClient(config.WebSearchConfig{BaseURL: srv.URL, APIKey: "bad", Timeout: time.Second}, "", nil)
	_, err = c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestVideoClient_Search(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "snippet", q.Get("part"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "3", q.Get("maxResults"))
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"abc"},"snippet":{"title":"Tr&#7913;ng chi&ecirc;n","channelTitle":"Bếp Nhà","thumbnails":{"default":{"url":"https://i.ytimg.com/d.jpg"},"high":{"url":"https://i.ytimg.com/h.jpg"}}}},
			{"id":{},"snippet":{"title":"channel result"}}]}`))
	})
	c := NewVideoClient(config.VideoSearchConfig{BaseURL: srv.URL, APIKey: "yt", Timeout: time.Second}, "", zaptest.NewLogger(t))

	videos, err := c.Search(context.Background(), "trứng", 3)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Trứng chiên", videos[0].Title)
	assert.Equal(t, "Bếp Nhà", videos[0].Channel)
	assert.Equal(t, "https://i.ytimg.com/h.jpg", videos[0].ThumbnailURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", videos[0].WatchURL)
}

func TestVideoClient_APIError(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	})
	c := NewVideoClient(config.VideoSearchConfig{BaseURL: srv.URL, APIKey: "yt", Timeout: time.Second}, "", nil)

	_, err := c.Search(context.Background(), "trứng", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestEncyclopediaClient_Search(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/w/api.php", r.URL.Path)
		assert.Equal(t, "search", q.Get("generator"))
		assert.Equal(t, "Phở", q.Get("gsrsearch"))
		_, _ = w.Write([]byte(`{"query":{"pages":[
			{"pageid":2,"index":2,"title":"Phở (định hướng)","extract":"Phở có thể là","fullurl":"https://vi.wikipedia.org/wiki/Ph%E1%BB%9F_(%C4%91%E1%BB%8Bnh_h%C6%B0%E1%BB%9Bng)","pageprops":{"disambiguation":""}},
			{"pageid":1,"index":1,"title":"Phở","extract":"Phở là một món ăn truyền thống","fullurl":"https://vi.wikipedia.org/wiki/Ph%E1%BB%9F"}]}}`))
	})
	c := NewEncyclopediaClient(config.EncyclopediaConfig{Enabled: true, BaseURL: srv.URL + "/w/api.php", Timeout: time.Second}, "", zaptest.NewLogger(t))

	articles, err := c.Search(context.Background(), "Phở", 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Phở", articles[0].Title)
	assert.False(t, articles[0].Disambiguation)
	assert.True(t, articles[1].Disambiguation)
}

func TestEncyclopediaClient_NoPages(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"batchcomplete":true}`))
	})
	c := NewEncyclopediaClient(config.EncyclopediaConfig{Enabled: true, BaseURL: srv.URL, Timeout: time.Second}, "", nil)

	_, err := c.Search(context.Background(), "xyz", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewEncyclopediaClient(config.EncyclopediaConfig{}, "", nil).Search(context.Background(), "xyz", 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
