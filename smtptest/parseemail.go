package smtptest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// Part is one decoded piece of a received message: the text, or an
// attachment
type Part struct {
	ContentType string
	// Decoded attachment file name. Blank for the message text.
	Filename string
	Content  []byte
}

// DecodeMessage parses a raw message as received by a server and returns
// its headers and base64-decoded parts. A single-part message gives one
// Part. If a test is failing here, make sure the message headers still end
// with a blank line and every part is base64-encoded.
func DecodeMessage(raw string) (mail.Header, []Part, error) {
	m, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("can't read the message: %v", err)
	}

	mt, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("can't parse the content type: %v", err)
	}

	if !strings.HasPrefix(mt, "multipart/") {
		c, err := decodeBase64(m.Body)
		if err != nil {
			return nil, nil, err
		}
		return m.Header, []Part{{ContentType: m.Header.Get("Content-Type"), Content: c}}, nil
	}

	var parts []Part
	dec := new(mime.WordDecoder)
	rdr := multipart.NewReader(m.Body, params["boundary"])
	for {
		p, err := rdr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("can't read a message part: %v", err)
		}

		c, err := decodeBase64(p)
		if err != nil {
			return nil, nil, err
		}

		var fn string
		if cd := p.Header.Get("Content-Disposition"); cd != "" {
			_, dp, err := mime.ParseMediaType(cd)
			if err != nil {
				return nil, nil, fmt.Errorf("can't parse the content disposition: %v", err)
			}
			fn, err = dec.DecodeHeader(dp["filename"])
			if err != nil {
				return nil, nil, fmt.Errorf("can't decode the attachment name: %v", err)
			}
		}

		parts = append(parts, Part{
			ContentType: p.Header.Get("Content-Type"),
			Filename:    fn,
			Content:     c,
		})
	}
	return m.Header, parts, nil
}

// decodeBase64 decodes line-wrapped base64, ignoring the end-of-data line a
// DATA payload may still carry
func decodeBase64(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := strings.NewReplacer("\r", "", "\n", "").Replace(string(b))
	s = strings.TrimSuffix(s, ".")
	c, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("can't decode the base64 content: %v", err)
	}
	return c, nil
}
