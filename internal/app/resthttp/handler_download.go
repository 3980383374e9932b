package resthttp

import (
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/zata-zhangtao/transFileServer/internal/models"
	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
)

// getDownload отдаёт объект вложением; Range-запросы обслуживает http.ServeContent.
func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	obj, rd, err := s.Objects.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	defer rd.Close()

	w.Header().Set("Content-Type", contentType(obj))
	w.Header().Set("Content-Disposition", contentDisposition(obj.DisplayName))
	http.ServeContent(w, r, "", obj.CreatedAt, rd)
}

func contentType(obj models.StoredObject) string {
	if obj.Kind == models.KindText {
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(path.Ext(obj.DisplayName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
