package objectsvc

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/zata-zhangtao/transFileServer/internal/models"
)

const (
	// KeySeparator отделяет id от имени файла в ключе хранилища.
	KeySeparator = "_"
	textSuffix   = ".txt"

	defaultFileName = "file"
	maxNameBytes    = 200
)

// EncodeKey строит ключ хранилища: "<id>_<name>" для файлов и "<id>.txt" для текста.
func EncodeKey(id, displayName string, kind models.Kind) string {
	if kind == models.KindText {
		return id + textSuffix
	}
	return id + KeySeparator + displayName
}

// SplitKey восстанавливает id и имя из ключа, разрезая его по первому разделителю.
// Ключи без разделителя вида "<id>.txt" — текстовые объекты.
func SplitKey(key string) (id, displayName string, kind models.Kind, ok bool) {
	if i := strings.Index(key, KeySeparator); i > 0 && i < len(key)-1 {
		return key[:i], key[i+1:], models.KindFile, true
	}
	if strings.HasSuffix(key, textSuffix) && len(key) > len(textSuffix) && !strings.Contains(key, KeySeparator) {
		return strings.TrimSuffix(key, textSuffix), key, models.KindText, true
	}
	return "", "", "", false
}

// TextName — имя, которое сервер выбирает для текстовых объектов.
func TextName(id string) string {
	return id + textSuffix
}

// SanitizeName оставляет от присланного имени только базовое имя файла без
// управляющих символов. Пустое имя заменяется на "file".
func SanitizeName(name string) (string, error) {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name != "" {
		name = path.Base(name)
	}
	if name == "" || name == "." || name == ".." || name == "/" {
		return defaultFileName, nil
	}
	if len(name) > maxNameBytes {
		return "", fmt.Errorf("%w: file name is longer than %d bytes", models.ErrBadRequest, maxNameBytes)
	}
	return name, nil
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: object id is empty", models.ErrBadRequest)
	}
	if strings.Contains(id, KeySeparator) || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: object id %q contains reserved characters", models.ErrBadRequest, id)
	}
	return nil
}
