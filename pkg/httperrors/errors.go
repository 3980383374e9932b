package httperrors

import (
	"errors"
	"net/http"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

// Status сопоставляет ошибку сервиса HTTP-коду.
func Status(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Write(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), Status(err))
}
