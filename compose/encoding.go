package compose

import (
	"encoding/base64"
	"io"
	"strings"
)

// MaxLineLength is the width base64 bodies are wrapped at
const MaxLineLength = 76

// EncodeHeaderWord wraps text as an RFC 2047 encoded word in charset, e.g.
// "=?UTF-8?B?SGk=?=". Used for the subject, the sender's display name and
// attachment names, never for addresses.
func EncodeHeaderWord(charset, text string) string {
	return "=?" + charset + "?B?" + base64.StdEncoding.EncodeToString([]byte(text)) + "?="
}

// lineBreaker writes its input to out, inserting delim after every
// MaxLineLength bytes. Close terminates a partial last line.
type lineBreaker struct {
	out   io.Writer
	delim []byte
	used  int
}

func (l *lineBreaker) Write(data []byte) (int, error) {
	n := 0
	for len(data) > 0 {
		chunk := data
		if room := MaxLineLength - l.used; len(chunk) > room {
			chunk = chunk[:room]
		}
		w, err := l.out.Write(chunk)
		n += w
		if err != nil {
			return n, err
		}
		l.used += len(chunk)
		data = data[len(chunk):]

		if l.used == MaxLineLength {
			if _, err := l.out.Write(l.delim); err != nil {
				return n, err
			}
			l.used = 0
		}
	}
	return n, nil
}

func (l *lineBreaker) Close() error {
	if l.used == 0 {
		return nil
	}
	l.used = 0
	_, err := l.out.Write(l.delim)
	return err
}

// encodeBase64Lines base64-encodes data and wraps it at MaxLineLength, with
// every line, including the last, followed by delim. Empty data gives a
// lone delim.
func encodeBase64Lines(data []byte, delim string) string {
	if len(data) == 0 {
		return delim
	}
	var b strings.Builder
	lb := &lineBreaker{out: &b, delim: []byte(delim)}
	enc := base64.NewEncoder(base64.StdEncoding, lb)
	// Writes to a strings.Builder can't fail
	_, _ = enc.Write(data)
	_ = enc.Close()
	_ = lb.Close()
	return b.String()
}
