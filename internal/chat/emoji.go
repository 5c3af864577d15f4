package chat

import "unicode"

// emojiOnly reports whether text carries no content besides emoji,
// whitespace and punctuation-free decoration. Such batches are dropped
// without a reply.
func emojiOnly(text string) bool {
	seen := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		seen = true
		if !emojiRune(r) {
			return false
		}
	}
	return seen
}

// emojiRune reports whether r belongs to the emoji-adjacent ranges.
func emojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r == 0x200D || r == 0xFE0F || r == 0xFE0E: // ZWJ, variation selectors
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r):
		return true
	}
	return false
}
