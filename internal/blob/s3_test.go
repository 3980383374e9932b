package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Требует S3-совместимый endpoint (localstack/MinIO), например
// S3_TEST_ENDPOINT=http://localhost:4566 S3_TEST_BUCKET=transfer.
func TestS3RoundTrip(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	bucket := os.Getenv("S3_TEST_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("S3_TEST_ENDPOINT/S3_TEST_BUCKET not set")
	}

	ctx := context.Background()
	st, err := NewS3(ctx, S3Config{
		Bucket:    bucket,
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "it-" + uuid.NewString(),
	})
	require.NoError(t, err)

	payload := []byte("0123456789")
	_, err = st.Put(ctx, "obj_a.bin", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	rd, err := st.Open(ctx, "obj_a.bin")
	require.NoError(t, err)
	_, err = rd.Seek(4, io.SeekStart)
	require.NoError(t, err)
	tail, err := io.ReadAll(rd)
	require.NoError(t, err)
	require.NoError(t, rd.Close())
	require.Equal(t, "456789", string(tail))

	infos, err := st.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 1)

	require.NoError(t, st.Delete(ctx, "obj_a.bin"))
}
