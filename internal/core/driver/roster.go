package driver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Roster は選択可能なリクルーターと採用経路の一覧です。起動時に設定から注入します。
type Roster struct {
	Recruiters []string
	Sources    []string
}

// DefaultRoster は設定が無い場合の既定一覧です。
func DefaultRoster() Roster {
	return Roster{
		Recruiters: []string{"Emily", "Victoria", "Zoe", "Melissa", "Camilla"},
		Sources:    []string{"Facebook", "Referral", "Agent"},
	}
}

// CanonicalRecruiter は表記ゆれ (大文字小文字・Unicode 正規化) を吸収して一覧上の表記を返します。
func (r Roster) CanonicalRecruiter(raw string) (string, bool) {
	return canonical(r.Recruiters, raw)
}

// CanonicalSource は CanonicalRecruiter の採用経路版です。
func (r Roster) CanonicalSource(raw string) (string, bool) {
	return canonical(r.Sources, raw)
}

func canonical(options []string, raw string) (string, bool) {
	key := foldKey(raw)
	if key == "" {
		return "", false
	}
	for _, o := range options {
		if foldKey(o) == key {
			return o, true
		}
	}
	return "", false
}

// foldKey は全角・半角の違いを NFKC で、大文字小文字を case folding で吸収します。
func foldKey(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
