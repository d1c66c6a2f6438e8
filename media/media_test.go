package media

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/kawilabs/go-kawi/service/pinata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPinataFixture serves the v3 upload API, minting a CID per uploaded file
// and rejecting any file whose name starts with "bad"
func newPinataFixture(t *testing.T) *pinata.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v3/files":
			require.NoError(t, r.ParseMultipartForm(32<<20))
			file := r.MultipartForm.File["file"][0]
			if strings.HasPrefix(file.Filename, "bad") {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"error":"rejected"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"cid": "bafy-" + file.Filename},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/v3/files/sign":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"url": "https://uploads.pinata.cloud/signed/abc123"},
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v3/files/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"id": "f1", "cid": "bafy-known", "name": "known.png", "size": 42},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return pinata.NewClientWithURLs("test-jwt", srv.URL, srv.URL, srv.Client())
}

func newMediaRouter(t *testing.T, ipfs *shell.Shell) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	HandlersInit(router, newPinataFixture(t), ipfs)
	return router
}

func multipartBody(t *testing.T, field string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	router := newMediaRouter(t, nil)

	body, contentType := multipartBody(t, "file", "art.png")
	req := httptest.NewRequest(http.MethodPost, "/media/upload-image", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out uploadOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "bafy-art.png", out.CID)
}

func TestUploadMetadata(t *testing.T) {
	router := newMediaRouter(t, nil)

	b, err := json.Marshal(map[string]interface{}{
		"name":     "token-1",
		"metadata": map[string]string{"name": "Token #1", "image": "ipfs://bafy-art.png"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/media/upload-metadata", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out uploadOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.CID)
}

func TestUploadBatchImages(t *testing.T) {
	t.Run("reports per-file results with partial failure", func(t *testing.T) {
		router := newMediaRouter(t, nil)

		body, contentType := multipartBody(t, "files", "one.png", "bad.png", "two.png")
		req := httptest.NewRequest(http.MethodPost, "/media/upload-batch-images", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out batchUploadOutput
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.True(t, out.Success)
		require.Len(t, out.Results, 3)
		assert.Equal(t, "bafy-one.png", out.Results[0].CID)
		assert.NotEmpty(t, out.Results[1].Error)
		assert.Equal(t, "bafy-two.png", out.Results[2].CID)
		assert.Equal(t, []string{"bad.png"}, out.Failed)
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		router := newMediaRouter(t, nil)

		body, contentType := multipartBody(t, "unrelated", "one.png")
		req := httptest.NewRequest(http.MethodPost, "/media/upload-batch-images", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignedUploadURL(t *testing.T) {
	router := newMediaRouter(t, nil)

	b, err := json.Marshal(map[string]interface{}{"filename": "art.png", "expires": 60})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/media/signed-url", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out signedURLOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Contains(t, out.URL, "signed")
}

func TestFileInfo(t *testing.T) {
	router := newMediaRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/info/bafy-known", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info pinata.FileInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "bafy-known", info.CID)
}

func TestIPFSContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/cat") {
			w.Write([]byte("pinned content"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	router := newMediaRouter(t, shell.NewShell(srv.URL))

	req := httptest.NewRequest(http.MethodGet, "/media/ipfs/bafy-known", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pinned content", w.Body.String())
}
