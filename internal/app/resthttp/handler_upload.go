package resthttp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zata-zhangtao/transFileServer/internal/models"
	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

// postUpload принимает целиком файл (поле file) или текст (поле text).
func (s *Server) postUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		httperrors.Write(w, err)
		return
	}
	defer cleanupForm(r)

	var (
		obj models.StoredObject
		err error
	)
	file, hdr, ferr := r.FormFile(transferproto.FieldFile)
	switch {
	case ferr == nil:
		defer file.Close()
		obj, err = s.Objects.Put(r.Context(), file, hdr.Size, hdr.Filename, models.KindFile)
	case !errors.Is(ferr, http.ErrMissingFile) && !errors.Is(ferr, http.ErrNotMultipart):
		err = fmt.Errorf("%w: %w", models.ErrBadRequest, ferr)
	case r.FormValue(transferproto.FieldText) != "":
		obj, err = s.Objects.PutText(r.Context(), r.FormValue(transferproto.FieldText))
	default:
		err = fmt.Errorf("%w: no file or text provided", models.ErrBadRequest)
	}
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferproto.UploadResponse{
		FileID:   obj.ID,
		Filename: obj.DisplayName,
		Type:     string(obj.Kind),
	})
}
