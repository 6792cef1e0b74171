// Package utils provides small, generic text helpers used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MaxMessageLength is Telegram's per-message limit, in UTF-16 code units.
const MaxMessageLength = 4096

// DefaultChunkSize is the per-message budget for private chat delivery, in
// UTF-16 code units. It stays below MaxMessageLength so a header and link
// suffix still fit.
const DefaultChunkSize = 3800

// EmptyQuery replaces blank inline queries.
const EmptyQuery = "(no query)"

// UTF16Len reports the length of s in UTF-16 code units, the unit Telegram
// measures message text in.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// SplitToChunks slices text left to right into pieces of at most maxSize
// UTF-16 code units. Concatenating the pieces in order yields text exactly;
// empty text yields no chunks. A character is never split, so a chunk ends
// early when the next character would not fit. A maxSize <= 0 returns text
// as one chunk.
//
// Example:
//
//	utils.SplitToChunks("abcde", 2) // ["ab", "cd", "e"]
func SplitToChunks(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 || UTF16Len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start, units := 0, 0
	for i, r := range text {
		n := utf16.RuneLen(r)
		if units > 0 && units+n > maxSize {
			chunks = append(chunks, text[start:i])
			start, units = i, 0
		}
		units += n
	}
	return append(chunks, text[start:])
}

// NormalizeQuery returns q in Unicode NFC with surrounding whitespace
// trimmed, or EmptyQuery when nothing is left.
func NormalizeQuery(q string) string {
	q = strings.TrimSpace(norm.NFC.String(q))
	if q == "" {
		return EmptyQuery
	}
	return q
}
