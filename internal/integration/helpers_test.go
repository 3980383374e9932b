package integration

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zata-zhangtao/transFileServer/internal/app/resthttp"
	"github.com/zata-zhangtao/transFileServer/internal/config"
	"github.com/zata-zhangtao/transFileServer/internal/logging"
	"github.com/zata-zhangtao/transFileServer/pkg/transferclient"
)

// testConfig — конфигурация со всеми каталогами и SQLite-индексом внутри root.
func testConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.ListenAddr = ":0"
	cfg.MetaDSN = "sqlite://" + filepath.Join(root, "meta.db")
	cfg.ObjectsDir = filepath.Join(root, "uploads")
	cfg.StagingDir = filepath.Join(root, "temp_chunks")
	cfg.GC.Interval = 0
	return &cfg
}

// startServer поднимает REST-сервис на httptest и возвращает клиент к нему.
func startServer(t *testing.T, cfg *config.Config, opts ...transferclient.Option) *transferclient.Client {
	t.Helper()

	h, srv, err := resthttp.NewServer(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	rest := httptest.NewServer(h)
	t.Cleanup(func() {
		rest.Close()
		_ = srv.Close()
	})

	return transferclient.New(rest.URL, opts...)
}
