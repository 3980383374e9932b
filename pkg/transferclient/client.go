// Package transferclient — HTTP-клиент файлового сервиса: загрузка целиком,
// параллельная chunked-загрузка, скачивание и управление объектами.
package transferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

const defaultParallelism = 4

// StatusError — ответ сервера с кодом не из 2xx.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsNotFound сообщает, что сервер ответил 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	baseURL     string
	c           *http.Client
	progress    io.Writer
	chunkSize   int64
	parallelism int
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.c = c }
}

// WithProgress включает индикатор выполнения, который пишется в w.
func WithProgress(w io.Writer) Option {
	return func(cl *Client) { cl.progress = w }
}

func WithChunkSize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.chunkSize = n
		}
	}
}

// WithParallelism ограничивает число одновременно отправляемых частей.
func WithParallelism(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.parallelism = n
		}
	}
}

// New создаёт клиент для сервиса по адресу baseURL.
func New(baseURL string, opts ...Option) *Client {
	cl := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		c:           &http.Client{},
		chunkSize:   transferproto.DefaultChunkSize,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// UploadFile отправляет файл одним multipart-запросом, не буферизуя его целиком.
func (h *Client) UploadFile(ctx context.Context, filename string, r io.Reader, size int64) (transferproto.UploadResponse, error) {
	var out transferproto.UploadResponse

	bar := newProgressBar(h.progress, "Uploading "+filename, size)
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile(transferproto.FieldFile, filename)
		if err == nil {
			_, err = io.Copy(fw, progressReader{inner: r, bar: bar})
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+transferproto.PathUpload, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		bar.Fail(err)
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := h.doJSON(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		bar.Fail(err)
		return out, err
	}
	bar.Finish()
	return out, nil
}

// UploadText сохраняет текст на сервере.
func (h *Client) UploadText(ctx context.Context, text string) (transferproto.UploadResponse, error) {
	var out transferproto.UploadResponse

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField(transferproto.FieldText, text); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+transferproto.PathUpload, &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return out, h.doJSON(req, &out)
}

// UploadChunked режет содержимое на части и отправляет их параллельно под
// свежим uploadId; после отправки сверяет статус загрузки.
func (h *Client) UploadChunked(ctx context.Context, filename string, r io.ReaderAt, size int64) (transferproto.ChunkResponse, error) {
	return h.UploadChunkedWithID(ctx, uuid.NewString(), filename, r, size)
}

// UploadChunkedWithID — то же, что UploadChunked, с заданным uploadId
// (повторная попытка досылает части в ту же загрузку).
func (h *Client) UploadChunkedWithID(ctx context.Context, uploadID, filename string, r io.ReaderAt, size int64) (transferproto.ChunkResponse, error) {
	var final transferproto.ChunkResponse
	if size < 0 {
		return final, fmt.Errorf("negative size %d", size)
	}

	total := int((size + h.chunkSize - 1) / h.chunkSize)
	if total == 0 {
		total = 1
	}

	bar := newProgressBar(h.progress, fmt.Sprintf("Uploading %s in %d chunks", filename, total), size)
	results := make(chan transferproto.ChunkResponse, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallelism)
	for idx := 0; idx < total; idx++ {
		off := int64(idx) * h.chunkSize
		n := min(h.chunkSize, size-off)
		g.Go(func() error {
			body := progressReader{inner: io.NewSectionReader(r, off, n), bar: bar}
			resp, err := h.postChunk(gctx, uploadID, filename, idx, total, body)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", idx+1, total, err)
			}
			results <- resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		bar.Fail(err)
		return final, err
	}
	close(results)

	for resp := range results {
		if resp.Status == transferproto.StatusCompleted {
			final = resp
		}
	}

	st, err := h.Status(ctx, uploadID)
	if err != nil {
		bar.Fail(err)
		return final, err
	}
	if st.Status != transferproto.StatusCompleted {
		err = fmt.Errorf("upload %s is %s after sending all chunks", uploadID, st.Status)
		bar.Fail(err)
		return final, err
	}

	bar.Finish()
	if final.FileID == "" {
		final = transferproto.ChunkResponse{
			FileID:         uploadID,
			Filename:       filename,
			Type:           "file",
			Status:         transferproto.StatusCompleted,
			ReceivedChunks: total,
			TotalChunks:    total,
		}
	}
	return final, nil
}

func (h *Client) postChunk(ctx context.Context, uploadID, filename string, idx, total int, body io.Reader) (transferproto.ChunkResponse, error) {
	var out transferproto.ChunkResponse

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{transferproto.FieldUploadID, uploadID},
		{transferproto.FieldChunkIndex, strconv.Itoa(idx)},
		{transferproto.FieldTotalChunks, strconv.Itoa(total)},
		{transferproto.FieldFilename, filename},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return out, err
		}
	}
	fw, err := mw.CreateFormFile(transferproto.FieldChunk, "blob")
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(fw, body); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+transferproto.PathUploadChunk, &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return out, h.doJSON(req, &out)
}

// Status опрашивает состояние chunked-загрузки.
func (h *Client) Status(ctx context.Context, uploadID string) (transferproto.StatusResponse, error) {
	var out transferproto.StatusResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.objectURL(transferproto.PathUploadStatus, uploadID), nil)
	if err != nil {
		return out, err
	}
	return out, h.doJSON(req, &out)
}

// List возвращает список сохранённых объектов.
func (h *Client) List(ctx context.Context) ([]transferproto.FileInfo, error) {
	var out transferproto.ListResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+transferproto.PathFiles, nil)
	if err != nil {
		return nil, err
	}
	if err := h.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// Download пишет содержимое объекта в w и возвращает имя файла из Content-Disposition.
func (h *Client) Download(ctx context.Context, id string, w io.Writer) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.objectURL(transferproto.PathDownload, id), nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", 0, err
	}

	filename := id
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	bar := newProgressBar(h.progress, "Downloading "+filename, resp.ContentLength)
	body := newProgressReadCloser(resp.Body, bar)
	n, err := io.Copy(w, body)
	if err != nil {
		return filename, n, err
	}
	bar.Finish()
	return filename, n, nil
}

// Delete удаляет объект.
func (h *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.objectURL(transferproto.PathDelete, id), nil)
	if err != nil {
		return err
	}
	var out transferproto.MessageResponse
	return h.doJSON(req, &out)
}

// GC запускает на сервере очистку брошенных загрузок.
func (h *Client) GC(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+transferproto.PathAdminGC, nil)
	if err != nil {
		return 0, err
	}
	var out transferproto.GCResponse
	if err := h.doJSON(req, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// Health проверяет, что сервер отвечает.
func (h *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+transferproto.PathHealth, nil)
	if err != nil {
		return err
	}
	var out transferproto.HealthResponse
	return h.doJSON(req, &out)
}

func (h *Client) objectURL(prefix, id string) string {
	return h.baseURL + prefix + "/" + url.PathEscape(id)
}

func (h *Client) doJSON(req *http.Request, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
