package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
)

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "model": "ViT-B/32"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "ViT-B/32", status.Model)
}

func TestClientHealthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, catalog.ErrClassification)
}

func TestClientSimilarity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/similarity", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		// The image arrives as a file part, the texts as a JSON form field.
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		file.Close()

		var payload struct {
			Text []string `json:"text"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("text")), &payload))
		require.Len(t, payload.Text, 3)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"similarity": []float64{0.9, 0.2, 0.1},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	scores, err := client.Similarity(context.Background(), []byte("img"),
		[]string{"a photo of a car", "an image of a car", "a car"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.2, 0.1}, scores)
}

func TestClientSimilaritySingleScoreForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One-element requests come back as a bare float.
		json.NewEncoder(w).Encode(map[string]interface{}{"similarity": 0.42})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	scores, err := client.Similarity(context.Background(), []byte("img"), []string{"a car"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.42}, scores)
}

func TestClientSimilarityCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"similarity": []float64{0.5}})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Similarity(context.Background(), []byte("img"), []string{"a", "b"})
	assert.ErrorIs(t, err, catalog.ErrClassification)
}

func TestClientSimilarityEmptyTexts(t *testing.T) {
	client := NewClient("http://unused", 5*time.Second)
	_, err := client.Similarity(context.Background(), []byte("img"), nil)
	assert.ErrorIs(t, err, catalog.ErrValidation)
}

func TestClientSimilarityServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Similarity(context.Background(), []byte("img"), []string{"a"})
	assert.ErrorIs(t, err, catalog.ErrClassification)
}

func TestClientUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, catalog.ErrClassification)
}
