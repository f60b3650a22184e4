package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate 以字元（rune）為單位截斷字串
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// CleanString 去除前後空白並截斷，max 為 0 時不截斷
func CleanString(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 {
		s = Truncate(s, max)
	}
	return s
}

// Length 回傳字元數
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
