package resthttp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/zata-zhangtao/transFileServer/internal/models"
	"github.com/zata-zhangtao/transFileServer/pkg/httperrors"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

// postUploadChunk принимает одну часть chunked-загрузки.
func (s *Server) postUploadChunk(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		httperrors.Write(w, err)
		return
	}
	defer cleanupForm(r)

	req, err := chunkRequestFromForm(r)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	file, _, err := r.FormFile(transferproto.FieldChunk)
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: %s: %w", models.ErrBadRequest, transferproto.FieldChunk, err))
		return
	}
	defer file.Close()
	req.Body = file

	st, err := s.Chunks.SubmitChunk(r.Context(), req)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferproto.ChunkResponse{
		FileID:         st.UploadID,
		Filename:       st.DisplayName,
		Type:           string(st.Kind),
		Status:         string(st.Status),
		ReceivedChunks: st.ReceivedCount,
		TotalChunks:    st.DeclaredTotal,
	})
}

// chunkRequestFromForm читает поля части; upload_id можно передать и как file_id.
func chunkRequestFromForm(r *http.Request) (models.ChunkRequest, error) {
	uploadID := strings.TrimSpace(r.FormValue(transferproto.FieldUploadID))
	if uploadID == "" {
		uploadID = strings.TrimSpace(r.FormValue(transferproto.FieldFileID))
	}

	idx, err := formInt(r, transferproto.FieldChunkIndex)
	if err != nil {
		return models.ChunkRequest{}, err
	}
	total, err := formInt(r, transferproto.FieldTotalChunks)
	if err != nil {
		return models.ChunkRequest{}, err
	}

	return models.ChunkRequest{
		UploadID:      uploadID,
		Index:         idx,
		DeclaredTotal: total,
		DisplayName:   r.FormValue(transferproto.FieldFilename),
	}, nil
}
