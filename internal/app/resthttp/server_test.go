package resthttp

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zata-zhangtao/transFileServer/internal/blob"
	"github.com/zata-zhangtao/transFileServer/internal/config"
	"github.com/zata-zhangtao/transFileServer/internal/logging"
	meta "github.com/zata-zhangtao/transFileServer/internal/repo"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/chunksvc"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/objectsvc"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logging.Discard()
	root := t.TempDir()
	blobs, err := blob.NewLocal(filepath.Join(root, "objects"))
	require.NoError(t, err)

	objects := objectsvc.New(objectsvc.Deps{Blobs: blobs, Index: meta.NewMemoryStore(), Logger: logger})
	chunks, err := chunksvc.New(chunksvc.Deps{StagingDir: filepath.Join(root, "staging"), Objects: objects, Logger: logger})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ObjectsDir = filepath.Join(root, "objects")
	cfg.StagingDir = filepath.Join(root, "staging")

	return &Server{Objects: objects, Chunks: chunks, Cfg: &cfg, Logger: logger}
}

type formPart struct {
	field    string
	filename string
	value    []byte
}

func multipartBody(t *testing.T, parts ...formPart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.field, string(p.value)))
			continue
		}
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.value)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUploadFileAndDownload(t *testing.T) {
	h := newTestServer(t).Routes()

	body, ct := multipartBody(t, formPart{field: "file", filename: "отчёт 2024.txt", value: []byte("0123456789")})
	rec := do(t, h, http.MethodPost, "/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	up := decode[transferproto.UploadResponse](t, rec)
	assert.Equal(t, "отчёт 2024.txt", up.Filename)
	assert.Equal(t, "file", up.Type)
	require.NotEmpty(t, up.FileID)

	rec = do(t, h, http.MethodGet, "/download/"+up.FileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t,
		`attachment; filename="_____ 2024.txt"; filename*=UTF-8''%D0%BE%D1%82%D1%87%D1%91%D1%82%202024.txt`,
		rec.Header().Get("Content-Disposition"))

	rec = do(t, h, http.MethodGet, "/download/"+up.FileID, nil, "", "Range", "bytes=2-4")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "234", rec.Body.String())
}

func TestUploadTextHello(t *testing.T) {
	h := newTestServer(t).Routes()

	body, ct := multipartBody(t, formPart{field: "text", value: []byte("hello")})
	rec := do(t, h, http.MethodPost, "/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[transferproto.UploadResponse](t, rec)
	assert.Equal(t, "text", up.Type)
	assert.Equal(t, up.FileID+".txt", up.Filename)

	rec = do(t, h, http.MethodGet, "/files", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[transferproto.ListResponse](t, rec)
	require.Len(t, list.Files, 1)
	assert.Equal(t, up.FileID, list.Files[0].FileID)
	assert.Equal(t, "text", list.Files[0].Type)
	assert.EqualValues(t, 5, list.Files[0].Size)

	rec = do(t, h, http.MethodGet, "/download/"+up.FileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestUploadURLEncodedText(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodPost, "/upload", bytes.NewBufferString("text=hi+there"), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text", decode[transferproto.UploadResponse](t, rec).Type)
}

func TestUploadRequiresFileOrText(t *testing.T) {
	h := newTestServer(t).Routes()

	body, ct := multipartBody(t, formPart{field: "other", value: []byte("x")})
	rec := do(t, h, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, formPart{field: "text", value: nil})
	rec = do(t, h, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t)
	srv.Cfg.MaxUploadBytes = 512
	h := srv.Routes()

	body, ct := multipartBody(t, formPart{field: "file", filename: "big.bin", value: bytes.Repeat([]byte("x"), 8<<10)})
	rec := do(t, h, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func chunkForm(t *testing.T, id, idx, total, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	return multipartBody(t,
		formPart{field: "upload_id", value: []byte(id)},
		formPart{field: "chunk_index", value: []byte(idx)},
		formPart{field: "total_chunks", value: []byte(total)},
		formPart{field: "filename", value: []byte(name)},
		formPart{field: "chunk", filename: "blob", value: data},
	)
}

func TestChunkedUploadFlow(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodGet, "/upload-status/u42", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[transferproto.StatusResponse](t, rec)
	assert.Equal(t, "not_found", st.Status)
	assert.Nil(t, st.ReceivedChunks)

	parts := map[string][]byte{"0": []byte("AAAA"), "1": []byte("BBBB"), "2": []byte("CC")}
	var last transferproto.ChunkResponse
	for i, idx := range []string{"1", "0", "2"} {
		body, ct := chunkForm(t, "u42", idx, "3", "a.bin", parts[idx])
		rec = do(t, h, http.MethodPost, "/upload-chunk", body, ct)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[transferproto.ChunkResponse](t, rec)
		assert.Equal(t, i+1, last.ReceivedChunks)
		assert.Equal(t, 3, last.TotalChunks)
		assert.Equal(t, "u42", last.FileID)

		if i == 0 {
			rec = do(t, h, http.MethodGet, "/upload-status/u42", nil, "")
			st = decode[transferproto.StatusResponse](t, rec)
			assert.Equal(t, "uploading", st.Status)
			require.NotNil(t, st.ReceivedChunks)
			assert.Equal(t, 1, *st.ReceivedChunks)
		}
	}
	assert.Equal(t, "completed", last.Status)
	assert.Equal(t, "file", last.Type)

	rec = do(t, h, http.MethodGet, "/upload-status/u42", nil, "")
	st = decode[transferproto.StatusResponse](t, rec)
	assert.Equal(t, "completed", st.Status)
	assert.True(t, st.FileExists)

	rec = do(t, h, http.MethodGet, "/download/u42", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAAABBBBCC", rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/delete/u42", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "File deleted successfully", decode[transferproto.MessageResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/upload-status/u42", nil, "")
	assert.Equal(t, "not_found", decode[transferproto.StatusResponse](t, rec).Status)
}

func TestChunkAcceptsFileIDAlias(t *testing.T) {
	h := newTestServer(t).Routes()

	body, ct := multipartBody(t,
		formPart{field: "file_id", value: []byte("legacy")},
		formPart{field: "chunk_index", value: []byte("0")},
		formPart{field: "total_chunks", value: []byte("1")},
		formPart{field: "filename", value: []byte("one.bin")},
		formPart{field: "chunk", filename: "blob", value: []byte("1")},
	)
	rec := do(t, h, http.MethodPost, "/upload-chunk", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[transferproto.ChunkResponse](t, rec).Status)
}

func TestChunkValidationErrors(t *testing.T) {
	h := newTestServer(t).Routes()

	tests := map[string][]formPart{
		"index out of range": {
			{field: "upload_id", value: []byte("v1")},
			{field: "chunk_index", value: []byte("3")},
			{field: "total_chunks", value: []byte("3")},
			{field: "filename", value: []byte("a")},
			{field: "chunk", filename: "blob", value: []byte("x")},
		},
		"non numeric total": {
			{field: "upload_id", value: []byte("v1")},
			{field: "chunk_index", value: []byte("0")},
			{field: "total_chunks", value: []byte("many")},
			{field: "filename", value: []byte("a")},
			{field: "chunk", filename: "blob", value: []byte("x")},
		},
		"missing chunk": {
			{field: "upload_id", value: []byte("v1")},
			{field: "chunk_index", value: []byte("0")},
			{field: "total_chunks", value: []byte("1")},
			{field: "filename", value: []byte("a")},
		},
		"missing filename": {
			{field: "upload_id", value: []byte("v1")},
			{field: "chunk_index", value: []byte("0")},
			{field: "total_chunks", value: []byte("1")},
			{field: "chunk", filename: "blob", value: []byte("x")},
		},
	}

	for name, parts := range tests {
		t.Run(name, func(t *testing.T) {
			body, ct := multipartBody(t, parts...)
			rec := do(t, h, http.MethodPost, "/upload-chunk", body, ct)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t).Routes()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/download/missing", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/delete/missing", nil, "").Code)
}

func TestHealthAndAdmin(t *testing.T) {
	srv := newTestServer(t)
	srv.Cfg.Blob.S3.SecretKey = "top-secret"
	h := srv.Routes()

	rec := do(t, h, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[transferproto.HealthResponse](t, rec).Status)

	rec = do(t, h, http.MethodPost, "/admin/gc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[transferproto.GCResponse](t, rec).Removed)

	rec = do(t, h, http.MethodGet, "/admin/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "top-secret")
	cfg := decode[config.Config](t, rec)
	assert.Equal(t, srv.Cfg.StagingDir, cfg.StagingDir)

	rec = do(t, h, http.MethodGet, "/files", nil, "")
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}
