package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/docflow/domain"
)

func selectedFile(name, content string) *domain.SelectedFile {
	return domain.NewSelectedFile(&domain.Candidate{
		Name:      name,
		SizeBytes: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}, "application/pdf")
}

func TestStore_SendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, UploadPath, r.URL.Path)

		f, header, err := r.FormFile(FileField)
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "report.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 body", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"File uploaded successfully","id":"abc"}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL+"/", 0)
	reply, err := tr.Store(context.Background(), selectedFile("report.pdf", "%PDF-1.4 body"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, reply.StatusCode)
	assert.Equal(t, "File uploaded successfully", reply.Message)
	assert.Equal(t, "abc", reply.Body["id"])
}

func TestTrigger_PostsToDriverEndpoint(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, TriggerPath, r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"Driver run completed"}`))
	}))
	defer server.Close()

	reply, err := NewHTTPTransport(server.URL, 0).Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, reply.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retries")
}

func TestErrorReplies(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message field", http.StatusInternalServerError, `{"message":"disk full"}`, "disk full"},
		{"detail field", http.StatusBadRequest, `{"detail":"No file part"}`, "No file part"},
		{"plain text body", http.StatusBadGateway, "upstream down", ""},
		{"empty body", http.StatusInternalServerError, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tr := NewHTTPTransport(server.URL, 0)

			_, err := tr.Store(context.Background(), selectedFile("a.pdf", "x"))
			var te *domain.TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, domain.PhaseUpload, te.Phase)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.wantMessage, te.Message)

			_, err = tr.Trigger(context.Background())
			require.True(t, errors.As(err, &te))
			assert.Equal(t, domain.PhaseProcess, te.Phase)
		})
	}
}

func TestStore_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPTransport(url, time.Second).Store(context.Background(), selectedFile("a.pdf", "x"))
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.Empty(t, te.Message)
	assert.Error(t, te.Err)
}

func TestStore_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPTransport(server.URL, 0).Store(ctx, selectedFile("a.pdf", "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_OpenFailure(t *testing.T) {
	file := domain.NewSelectedFile(&domain.Candidate{
		Name:      "gone.pdf",
		SizeBytes: 1,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("permission denied")
		},
	}, "")

	_, err := NewHTTPTransport("http://127.0.0.1:1", 0).Store(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
