package resthttp

import (
	"net/http"

	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, transferproto.HealthResponse{Status: "ok"})
}

// postGC вручную запускает сбор брошенных загрузок.
func (s *Server) postGC(w http.ResponseWriter, r *http.Request) {
	ttl := manualGCTTL
	if s.Cfg != nil && s.Cfg.GC.TTL > 0 {
		ttl = s.Cfg.GC.TTL
	}

	removed, err := s.Chunks.Sweep(r.Context(), ttl)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferproto.GCResponse{Removed: removed})
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	if s.Cfg == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.Cfg.Redacted())
}
