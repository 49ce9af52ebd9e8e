package compose

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ContentType of the message text
type ContentType string

const (
	TextPlain ContentType = "text/plain"
	TextHTML  ContentType = "text/html"
)

// ParseContentType returns TextPlain for "text" (or "text/plain") and
// TextHTML for anything else.
func ParseContentType(s string) ContentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", string(TextPlain):
		return TextPlain
	default:
		return TextHTML
	}
}

const (
	// DefaultCharset is used when a Message has none
	DefaultCharset = "UTF-8"
	// DefaultDelimiter is used when a Message has none
	DefaultDelimiter = "\r\n"

	// Used when a Message has no Boundary of its own
	fallbackBoundary = "_LITES_5be64bf46hd540654fbac1d_"

	preamble = "This is a multi-part message in MIME format."
)

// readFile loads attachment contents. Swapped out in tests.
var readFile = os.ReadFile

// NewBoundary returns a multipart boundary that won't collide with one
// generated for any other message.
func NewBoundary() string {
	return "_LITES_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "_"
}

// Message is everything needed to render a message apart from its subject
// and text. Header and Body don't modify it, so one Message renders the
// same text every time.
type Message struct {
	Sender      Sender
	Recipients  *Recipients
	Attachments *Attachments
	ContentType ContentType
	Charset     string
	// Line terminator for headers and wrapped base64
	Delimiter string
	// Separates parts when there are attachments. Header and Body must see
	// the same value.
	Boundary string
}

func (m Message) charset() string {
	if m.Charset == "" {
		return DefaultCharset
	}
	return m.Charset
}

func (m Message) delimiter() string {
	if m.Delimiter == "" {
		return DefaultDelimiter
	}
	return m.Delimiter
}

func (m Message) boundary() string {
	if m.Boundary == "" {
		return fallbackBoundary
	}
	return m.Boundary
}

func (m Message) contentType() ContentType {
	if m.ContentType == "" {
		return TextHTML
	}
	return m.ContentType
}

func (m Message) multipart() bool {
	return m.Attachments != nil && m.Attachments.Len() > 0
}

func (m Message) recipients(k RecipientKind) []string {
	if m.Recipients == nil {
		return nil
	}
	return m.Recipients.Get(k)
}

// Header renders the message headers, ending with the blank line that
// separates them from the body.
func (m Message) Header(subject string) string {
	d := m.delimiter()
	cs := m.charset()

	var b strings.Builder
	b.WriteString("MIME-Version: 1.0" + d)
	b.WriteString("Subject: " + EncodeHeaderWord(cs, subject) + d)
	if m.Sender.Name != "" {
		fmt.Fprintf(&b, "From: %v <%v>%v", EncodeHeaderWord(cs, m.Sender.Name), m.Sender.Address, d)
	} else {
		b.WriteString("From: " + m.Sender.Address + d)
	}

	b.WriteString("To: " + strings.Join(m.recipients(To), ",") + d)
	if cc := m.recipients(Cc); len(cc) > 0 {
		b.WriteString("Cc: " + strings.Join(cc, ",") + d)
	}
	if bc := m.recipients(Bc); len(bc) > 0 {
		b.WriteString("Bcc: " + strings.Join(bc, ",") + d)
	}

	if m.multipart() {
		fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=\"%v\"%v", m.boundary(), d)
	} else {
		fmt.Fprintf(&b, "Content-Type: %v; charset=\"%v\"%v", m.contentType(), cs, d)
		b.WriteString("Content-Transfer-Encoding: base64" + d)
	}

	b.WriteString(d)
	return b.String()
}

// Body renders text as base64, adding one part per attachment when there
// are any, and ends with the lone "." that closes a DATA payload (the final
// delimiter is left to whoever sends it). Attachment files are read whole,
// so this is only meant for small files. Returns an error if one can't be
// read.
func (m Message) Body(text string) (string, error) {
	d := m.delimiter()

	var b strings.Builder
	if !m.multipart() {
		b.WriteString(encodeBase64Lines([]byte(text), d))
		b.WriteString(d + ".")
		return b.String(), nil
	}

	cs := m.charset()
	b.WriteString(preamble + d + d)
	b.WriteString("--" + m.boundary() + d)
	fmt.Fprintf(&b, "Content-Type: %v; charset=\"%v\"%v", m.contentType(), cs, d)
	b.WriteString("Content-Transfer-Encoding: base64" + d + d)
	b.WriteString(encodeBase64Lines([]byte(text), d) + d)

	for _, a := range m.Attachments.List() {
		data, err := readFile(a.Path)
		if err != nil {
			return "", &AttachmentError{
				Path:   a.Path,
				Reason: fmt.Sprintf("can't be read: %v", err),
			}
		}
		name := EncodeHeaderWord(cs, a.Name)
		b.WriteString("--" + m.boundary() + d)
		fmt.Fprintf(&b, "Content-Type: application/octet-stream; name=\"%v\"%v", name, d)
		b.WriteString("Content-Transfer-Encoding: base64" + d)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%v\"%v", name, d)
		b.WriteString(d + encodeBase64Lines(data, d) + d)
	}

	b.WriteString("--" + m.boundary() + "--")
	b.WriteString(d + ".")
	return b.String(), nil
}
