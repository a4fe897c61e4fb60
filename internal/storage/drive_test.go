package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siaptugas/siaptugas/internal/shared"
)

func TestUploadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "surat.pdf", header.Filename)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://drive.example/abc","file_id":"abc"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	obj, err := client.Upload(context.Background(), "surat.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "https://drive.example/abc", obj.URL)
	require.Equal(t, "abc", obj.Handle)
}

func TestUploadBridgeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Upload(context.Background(), "surat.pdf", "", []byte("x"))
	require.ErrorIs(t, err, shared.ErrExternal)
}

func TestUploadRejectsMissingHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"https://drive.example/abc"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Upload(context.Background(), "surat.pdf", "", []byte("x"))
	require.ErrorIs(t, err, shared.ErrExternal)
}

func TestDeleteToleratesUnknownHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/files/gone", r.URL.Path)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.Delete(context.Background(), "gone"))
}
