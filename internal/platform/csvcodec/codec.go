package csvcodec

import (
	"strings"
)

// Document はヘッダー行と、ヘッダーをキーとするレコード列です。
type Document struct {
	Header  []string
	Records []map[string]string
}

// Encode は Document を CSV テキストに変換します。
// ヘッダーの順に各レコードの値を並べ、行は "\n" で連結します (末尾改行なし)。
// レコードが 1 件もない場合は空文字列を返します。
func Encode(doc Document) string {
	if len(doc.Records) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, doc.Header)
	row := make([]string, len(doc.Header))
	for _, rec := range doc.Records {
		b.WriteByte('\n')
		for i, h := range doc.Header {
			row[i] = rec[h]
		}
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeField(f))
	}
}

func escapeField(s string) string {
	escaped := strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(s, "\",\n\r") {
		return `"` + escaped + `"`
	}
	return escaped
}

// Decode は CSV テキストを Document に変換します。
//
// 1 文字ずつ走査し「引用符内」フラグのみで状態を管理します。CR は走査前に除去し、
// 末尾改行によって生じる空フィールド 1 個だけの行は捨てます。列数が足りない行は空文字列で補います。
func Decode(text string) Document {
	if text == "" {
		return Document{}
	}

	rows := scanRows(strings.ReplaceAll(text, "\r", ""))
	if len(rows) == 0 {
		return Document{}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 1 && row[0] == "" {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}

	return Document{Header: header, Records: records}
}

func scanRows(s string) [][]string {
	var (
		rows     [][]string
		row      []string
		cell     strings.Builder
		inQuotes bool
	)

	pushCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	pushRow := func() {
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuotes {
			if ch == '"' {
				if i+1 < len(s) && s[i+1] == '"' {
					cell.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cell.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			pushCell()
		case '\n':
			pushCell()
			pushRow()
		default:
			cell.WriteByte(ch)
		}
	}

	if cell.Len() > 0 || len(row) > 0 {
		pushCell()
		pushRow()
	}

	return rows
}
