package chunksvc_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zata-zhangtao/transFileServer/internal/blob"
	"github.com/zata-zhangtao/transFileServer/internal/models"
	meta "github.com/zata-zhangtao/transFileServer/internal/repo"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/chunksvc"
	"github.com/zata-zhangtao/transFileServer/internal/usecase/objectsvc"
)

type env struct {
	objects *objectsvc.Store
	asm     *chunksvc.Assembler
	staging string
}

func newEnv(t *testing.T) env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs, err := blob.NewLocal(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	objects := objectsvc.New(objectsvc.Deps{Blobs: blobs, Index: meta.NewMemoryStore(), Logger: logger})
	staging := filepath.Join(t.TempDir(), "staging")
	asm, err := chunksvc.New(chunksvc.Deps{StagingDir: staging, Objects: objects, Logger: logger})
	require.NoError(t, err)

	return env{objects: objects, asm: asm, staging: staging}
}

func splitChunks(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	return append(out, data)
}

func submit(t *testing.T, asm *chunksvc.Assembler, id string, idx, total int, name string, body []byte) models.ChunkStatus {
	t.Helper()

	st, err := asm.SubmitChunk(context.Background(), models.ChunkRequest{
		UploadID:      id,
		Index:         idx,
		DeclaredTotal: total,
		DisplayName:   name,
		Body:          bytes.NewReader(body),
	})
	require.NoError(t, err)
	return st
}

func content(t *testing.T, s *objectsvc.Store, id string) []byte {
	t.Helper()

	_, rd, err := s.Open(context.Background(), id)
	require.NoError(t, err)
	defer rd.Close()

	b, err := io.ReadAll(rd)
	require.NoError(t, err)
	return b
}

func TestSubmitChunkScenario442(t *testing.T) {
	e := newEnv(t)
	parts := [][]byte{[]byte("AAAA"), []byte("BBBB"), []byte("CC")}

	st := submit(t, e.asm, "u1", 1, 3, "a.bin", parts[1])
	assert.Equal(t, models.StateUploading, st.Status)
	assert.Equal(t, 1, st.ReceivedCount)

	st = submit(t, e.asm, "u1", 0, 3, "a.bin", parts[0])
	assert.Equal(t, models.StateUploading, st.Status)
	assert.Equal(t, 2, st.ReceivedCount)

	list, err := e.objects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "in-progress uploads must not be listed")

	st = submit(t, e.asm, "u1", 2, 3, "a.bin", parts[2])
	assert.Equal(t, models.StateCompleted, st.Status)
	assert.Equal(t, 3, st.ReceivedCount)
	assert.Equal(t, 3, st.DeclaredTotal)
	assert.Equal(t, models.KindFile, st.Kind)
	assert.Equal(t, "a.bin", st.DisplayName)

	list, err = e.objects.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].ID)
	assert.Equal(t, "a.bin", list[0].DisplayName)
	assert.EqualValues(t, 10, list[0].SizeBytes)

	obj, err := e.objects.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, obj.SizeBytes)
	assert.Equal(t, "a.bin", obj.DisplayName)
	assert.Equal(t, []byte("AAAABBBBCC"), content(t, e.objects, "u1"))

	_, err = os.Stat(filepath.Join(e.staging, "u1"))
	assert.True(t, os.IsNotExist(err), "staging must be removed after merge")
}

func TestListIgnoresStagedSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	done, err := e.objects.PutText(ctx, "hello")
	require.NoError(t, err)

	submit(t, e.asm, "pending", 0, 3, "p.bin", []byte("p"))

	list, err := e.objects.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, done.ID, list[0].ID)
}

func TestSubmitOrderDoesNotMatter(t *testing.T) {
	data := make([]byte, 10_000)
	_, _ = rand.New(rand.NewSource(42)).Read(data)
	parts := splitChunks(data, 1024)

	ordered := newEnv(t)
	for i, p := range parts {
		submit(t, ordered.asm, "ordered", i, len(parts), "data.bin", p)
	}

	shuffled := newEnv(t)
	order := rand.New(rand.NewSource(7)).Perm(len(parts))
	var last models.ChunkStatus
	for _, i := range order {
		last = submit(t, shuffled.asm, "shuffled", i, len(parts), "data.bin", parts[i])
	}
	assert.Equal(t, models.StateCompleted, last.Status)

	assert.Equal(t, data, content(t, ordered.objects, "ordered"))
	assert.Equal(t, data, content(t, shuffled.objects, "shuffled"))
}

func TestResubmitOverwritesChunk(t *testing.T) {
	e := newEnv(t)

	st := submit(t, e.asm, "dup", 0, 2, "d.txt", []byte("old"))
	assert.Equal(t, 1, st.ReceivedCount)
	st = submit(t, e.asm, "dup", 0, 2, "d.txt", []byte("new"))
	assert.Equal(t, 1, st.ReceivedCount)
	assert.Equal(t, models.StateUploading, st.Status)

	st = submit(t, e.asm, "dup", 1, 2, "d.txt", []byte("!"))
	assert.Equal(t, models.StateCompleted, st.Status)
	assert.Equal(t, []byte("new!"), content(t, e.objects, "dup"))

	// запоздалый повтор после сборки ничего не меняет
	st = submit(t, e.asm, "dup", 1, 2, "d.txt", []byte("?"))
	assert.Equal(t, models.StateCompleted, st.Status)
	assert.Equal(t, []byte("new!"), content(t, e.objects, "dup"))

	_, err := os.Stat(filepath.Join(e.staging, "dup"))
	assert.True(t, os.IsNotExist(err))
}

func TestQueryStatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, err := e.asm.QueryStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateNotFound, st.Status)
	assert.Nil(t, st.ReceivedCount)
	assert.False(t, st.ObjectExists)

	submit(t, e.asm, "s1", 1, 2, "s.bin", []byte("b"))
	st, err = e.asm.QueryStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateUploading, st.Status)
	require.NotNil(t, st.ReceivedCount)
	assert.Equal(t, 1, *st.ReceivedCount)

	submit(t, e.asm, "s1", 0, 2, "s.bin", []byte("a"))
	st, err = e.asm.QueryStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, st.Status)
	assert.True(t, st.ObjectExists)
	assert.Nil(t, st.ReceivedCount)

	require.NoError(t, e.objects.Delete(ctx, "s1"))
	st, err = e.asm.QueryStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateNotFound, st.Status)

	st, err = e.asm.QueryStatus(ctx, "../etc")
	require.NoError(t, err)
	assert.Equal(t, models.StateNotFound, st.Status)
}

func TestSubmitChunkValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		req  models.ChunkRequest
	}{
		{name: "empty id", req: models.ChunkRequest{Index: 0, DeclaredTotal: 1, DisplayName: "a"}},
		{name: "traversal id", req: models.ChunkRequest{UploadID: "../x", Index: 0, DeclaredTotal: 1, DisplayName: "a"}},
		{name: "underscore id", req: models.ChunkRequest{UploadID: "a_b", Index: 0, DeclaredTotal: 1, DisplayName: "a"}},
		{name: "negative index", req: models.ChunkRequest{UploadID: "v", Index: -1, DeclaredTotal: 1, DisplayName: "a"}},
		{name: "index past total", req: models.ChunkRequest{UploadID: "v", Index: 2, DeclaredTotal: 2, DisplayName: "a"}},
		{name: "zero total", req: models.ChunkRequest{UploadID: "v", Index: 0, DeclaredTotal: 0, DisplayName: "a"}},
		{name: "huge total", req: models.ChunkRequest{UploadID: "v", Index: 0, DeclaredTotal: chunksvc.MaxDeclaredTotal + 1, DisplayName: "a"}},
		{name: "no name", req: models.ChunkRequest{UploadID: "v", Index: 0, DeclaredTotal: 1, DisplayName: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Body = bytes.NewReader([]byte("x"))
			_, err := e.asm.SubmitChunk(context.Background(), tt.req)
			require.ErrorIs(t, err, models.ErrBadRequest)
		})
	}

	entries, err := os.ReadDir(e.staging)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the spool dir is expected")
}

func TestConcurrentSubmitsProduceOneObject(t *testing.T) {
	e := newEnv(t)

	data := make([]byte, 64*1024)
	_, _ = rand.New(rand.NewSource(1)).Read(data)
	parts := splitChunks(data, 4096)

	var wg sync.WaitGroup
	errs := make(chan error, len(parts)*3)
	for copyN := 0; copyN < 3; copyN++ {
		for i, p := range parts {
			wg.Add(1)
			go func(i int, p []byte) {
				defer wg.Done()
				_, err := e.asm.SubmitChunk(context.Background(), models.ChunkRequest{
					UploadID:      "race",
					Index:         i,
					DeclaredTotal: len(parts),
					DisplayName:   "race.bin",
					Body:          bytes.NewReader(p),
				})
				if err != nil {
					errs <- fmt.Errorf("chunk %d: %w", i, err)
				}
			}(i, p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := e.objects.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "race", list[0].ID)
	assert.Equal(t, data, content(t, e.objects, "race"))

	st, err := e.asm.QueryStatus(context.Background(), "race")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, st.Status)
}
