package csvcodec

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ByteOrderMark は表計算ソフト向けに CSV 先頭へ付与する UTF-8 BOM です。
const ByteOrderMark = "\uFEFF"

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// FormatValue はスカラー値を CSV セル用の文字列に変換します。nil は空文字列です。
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *float64:
		if t == nil {
			return ""
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// DecodeBytes は取り込みファイルのバイト列を UTF-8 テキストに変換します。
// UTF-8 / UTF-16 の BOM を取り除き、UTF-8 として不正な入力は ISO-8859-1 とみなします。
func DecodeBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if !utf8.Valid(data) && !bytes.HasPrefix(data, bomUTF16LE) && !bytes.HasPrefix(data, bomUTF16BE) {
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("csvcodec: decode latin-1: %w", err)
		}
		return string(out), nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("csvcodec: decode text: %w", err)
	}
	return string(out), nil
}
