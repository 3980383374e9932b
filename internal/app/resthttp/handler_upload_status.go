package resthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func (s *Server) getUploadStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Chunks.QueryStatus(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferproto.StatusResponse{
		Status:         string(st.Status),
		ReceivedChunks: st.ReceivedCount,
		FileExists:     st.ObjectExists,
	})
}
