package reader

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported in Decoded.Encoding.
const (
	EncodingUTF8BOM   = "utf-8-bom"
	EncodingUTF16LE   = "utf-16le"
	EncodingUTF16BE   = "utf-16be"
	EncodingUTF8      = "utf-8"
	EncodingGBK       = "gbk"
	EncodingUTF8Lossy = "utf-8-lossy"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decoded is the text of one document and the encoding that produced it.
type Decoded struct {
	Text     string
	Encoding string
}

// decodeAttempt tries one encoding. ok is false when the attempt does not apply.
type decodeAttempt struct {
	name string
	try  func(raw []byte) (text string, ok bool)
}

// decodeChain is tried in order; the last entry always succeeds.
var decodeChain = []decodeAttempt{
	{EncodingUTF8BOM, withBOM(bomUTF8, unicode.UTF8BOM)},
	{EncodingUTF16LE, withBOM(bomUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))},
	{EncodingUTF16BE, withBOM(bomUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))},
	{EncodingUTF8, asciiOnly},
	{EncodingUTF8, strictUTF8WithCJK},
	{EncodingGBK, strictGBK},
	{EncodingUTF8Lossy, lossyUTF8},
}

// Decode converts raw bytes to text. It never fails.
func Decode(raw []byte) Decoded {
	for _, a := range decodeChain {
		if text, ok := a.try(raw); ok {
			return Decoded{Text: text, Encoding: a.name}
		}
	}
	// unreachable: lossyUTF8 always succeeds
	return Decoded{Text: string(raw), Encoding: EncodingUTF8Lossy}
}

func withBOM(bom []byte, enc encoding.Encoding) func([]byte) (string, bool) {
	return func(raw []byte) (string, bool) {
		if !bytes.HasPrefix(raw, bom) {
			return "", false
		}
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
}

// asciiOnly accepts input every later decoder would read the same way, so
// it is labelled utf-8 rather than gbk.
func asciiOnly(raw []byte) (string, bool) {
	for _, b := range raw {
		if b >= utf8.RuneSelf {
			return "", false
		}
	}
	return string(raw), true
}

func strictUTF8WithCJK(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	text := string(raw)
	if !containsCJK(text) {
		return "", false
	}
	return text, true
}

func strictGBK(raw []byte) (string, bool) {
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	// The x/text decoder substitutes U+FFFD instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func lossyUTF8(raw []byte) (string, bool) {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("\uFFFD"))), true
	}
	return string(out), true
}

// containsCJK reports whether s has a code point in the CJK Unified Ideographs block.
func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
