package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"", "", false},
		{"not a video", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := ParseVideoID(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		iso     string
		want    string
		wantErr bool
	}{
		{"PT45S", "0:45", false},
		{"PT3M32S", "3:32", false},
		{"PT10M", "10:00", false},
		{"PT1H2M3S", "1:02:03", false},
		{"P1DT1H", "25:00:00", false},
		{"PT", "", true},
		{"3:32", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			got, err := FormatDuration(tt.iso)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	r, err := NewResolver(context.Background(), config.YouTubeConfig{Endpoint: server.URL + "/"},
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return r
}

func TestResolver_Resolve(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		id := req.URL.Query().Get("id")
		items := []map[string]interface{}{}
		if id == "dQw4w9WgXcQ" {
			items = append(items, map[string]interface{}{
				"id":             id,
				"snippet":        map[string]interface{}{"title": "Never Gonna Give You Up"},
				"contentDetails": map[string]interface{}{"duration": "PT3M33S"},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	})

	item, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", item.VideoID)
	assert.Equal(t, "Never Gonna Give You Up", item.Title)
	assert.Equal(t, "3:33", item.Duration)

	_, err = r.Resolve(context.Background(), "aaaaaaaaaaa")
	assert.ErrorIs(t, err, ErrUnresolvable)

	_, err = r.Resolve(context.Background(), "garbage reference")
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestResolver_TransportFailure(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := r.Resolve(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnresolvable))
}
