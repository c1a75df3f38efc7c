package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

type codec struct {
	name     string
	encoding encoding.Encoding
}

// shift_jis in x/text is the windows-31j (cp932) superset
var legacyCodecs = []codec{
	{name: "shift_jis", encoding: japanese.ShiftJIS},
	{name: "euc-jp", encoding: japanese.EUCJP},
	{name: "iso-2022-jp", encoding: japanese.ISO2022JP},
}

type Decoded struct {
	Text     string
	Encoding string
	// Lossy is true when no codec could decode the input cleanly and some
	// byte sequences were substituted with U+FFFD.
	Lossy bool
}

// legacyCandidates orders the legacy codecs, a charset declared by the page
// itself (meta tag) goes first.
func legacyCandidates(raw []byte) []codec {
	_, declared, _ := charset.DetermineEncoding(raw, "")
	declared = strings.ToLower(declared)
	if declared == "windows-31j" || declared == "cp932" {
		declared = "shift_jis"
	}

	out := make([]codec, 0, len(legacyCodecs))
	for _, c := range legacyCodecs {
		if c.name == declared {
			out = append(out, c)
		}
	}
	for _, c := range legacyCodecs {
		if c.name != declared {
			out = append(out, c)
		}
	}
	return out
}

var replacement = []byte(string(utf8.RuneError))

// Decode turns the raw bytes of a page into text. UTF-8 is tried first, then
// the legacy Japanese codecs; the first one that decodes cleanly wins. Failing
// that, the codec with the fewest substituted sequences is used. Decode never
// fails.
func Decode(raw []byte) Decoded {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return Decoded{Text: string(raw), Encoding: "utf-8"}
	}

	forced := strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	best := Decoded{Text: forced, Encoding: "utf-8", Lossy: true}
	bestErrors := strings.Count(forced, string(utf8.RuneError))

	for _, c := range legacyCandidates(raw) {
		out, err := c.encoding.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		errors := bytes.Count(out, replacement)
		if errors == 0 {
			return Decoded{Text: string(out), Encoding: c.name}
		}
		if errors < bestErrors {
			best = Decoded{Text: string(out), Encoding: c.name, Lossy: true}
			bestErrors = errors
		}
	}
	return best
}
