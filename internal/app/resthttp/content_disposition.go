package resthttp

import (
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789ABCDEF"

// contentDisposition формирует заголовок вложения: ASCII-имя для старых
// клиентов и filename* (RFC 5987) с исходным UTF-8 именем.
func contentDisposition(name string) string {
	var b strings.Builder
	b.WriteString(`attachment; filename="`)
	b.WriteString(asciiFilename(name))
	b.WriteString(`"; filename*=UTF-8''`)
	b.WriteString(encodeExtValue(name))
	return b.String()
}

func asciiFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('_')
		case r < 0x20 || r >= utf8.RuneSelf || r == 0x7f:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	if strings.Trim(b.String(), "_. ") == "" {
		return "download"
	}
	return b.String()
}

// encodeExtValue процентно кодирует всё, кроме attr-char.
func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
