package filter

import (
	"fmt"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// fallbackCharset is what charset.DetermineEncoding returns when it found no
// BOM, header charset, meta tag or valid UTF-8.
const fallbackCharset = "windows-1252"

const minGuessConfidence = 30

// DecodeHTML converts raw payload bytes to a UTF-8 string. The encoding is
// taken from a BOM, the Content-Type charset or a <meta> tag; failing those a
// statistical guess is used before falling back to windows-1252.
func DecodeHTML(content []byte, contentType string) (string, error) {
	enc, name := detectEncoding(content, contentType)
	text, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode %s payload: %w", name, err)
	}
	return string(text), nil
}

func detectEncoding(content []byte, contentType string) (encoding.Encoding, string) {
	enc, name, certain := charset.DetermineEncoding(content, contentType)
	if certain || name != fallbackCharset {
		return enc, name
	}
	guess, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || guess == nil || guess.Confidence < minGuessConfidence {
		return enc, name
	}
	if guessed, guessedName := charset.Lookup(guess.Charset); guessed != nil {
		return guessed, guessedName
	}
	return enc, name
}
