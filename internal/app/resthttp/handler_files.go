package resthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func (s *Server) getFiles(w http.ResponseWriter, r *http.Request) {
	objects, err := s.Objects.List(r.Context())
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	resp := transferproto.ListResponse{Files: make([]transferproto.FileInfo, 0, len(objects))}
	for _, obj := range objects {
		resp.Files = append(resp.Files, transferproto.FileInfo{
			FileID:    obj.ID,
			Filename:  obj.DisplayName,
			Size:      obj.SizeBytes,
			Type:      string(obj.Kind),
			CreatedAt: obj.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.Objects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferproto.MessageResponse{Message: "File deleted successfully"})
}
