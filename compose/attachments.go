package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
)

// AttachmentError explains why a file can't be attached
type AttachmentError struct {
	Path   string
	Reason string
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("Error: attachment '%v' %v", e.Path, e.Reason)
}

// Attachment is a file to send along with the message
type Attachment struct {
	// Shown to the recipient as the file name
	Name string
	// Where to read the contents from when the body is rendered
	Path string
}

// ParseAttachment parses "display-name:/path/to/file" or a bare path, in
// which case the name is the path's last element.
func ParseAttachment(spec string) Attachment {
	a := Attachment{Path: spec}
	if n, p, ok := strings.Cut(spec, ":"); ok {
		a.Name = n
		a.Path = p
	}
	if a.Name == "" {
		a.Name = filepath.Base(a.Path)
	}
	return a
}

// Attachments maps display names to file paths, keeping the order names
// were first added. The zero value is empty and ready to use.
type Attachments struct {
	items []Attachment
}

// Add registers the attachment described by spec (see ParseAttachment). The
// file must exist now; it isn't read until the body is rendered. If maxSize
// is positive, larger files are refused too. Adding a name that's already
// registered replaces its path.
func (as *Attachments) Add(spec string, maxSize int64) (Attachment, error) {
	a := ParseAttachment(spec)

	fi, err := os.Stat(a.Path)
	if err != nil || fi.IsDir() {
		return a, &AttachmentError{Path: a.Path, Reason: "doesn't exist!"}
	}
	if maxSize > 0 && fi.Size() > maxSize {
		return a, &AttachmentError{
			Path: a.Path,
			Reason: fmt.Sprintf(
				"is %v, over the %v limit",
				units.BytesSize(float64(fi.Size())),
				units.BytesSize(float64(maxSize)),
			),
		}
	}

	for i := range as.items {
		if as.items[i].Name == a.Name {
			as.items[i].Path = a.Path
			return a, nil
		}
	}
	as.items = append(as.items, a)
	return a, nil
}

// Remove drops the attachments with the given display names
func (as *Attachments) Remove(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := as.items[:0]
	for _, a := range as.items {
		if _, ok := drop[a.Name]; !ok {
			kept = append(kept, a)
		}
	}
	as.items = kept
}

// Clear drops every attachment
func (as *Attachments) Clear() {
	as.items = nil
}

// Len returns the number of attachments
func (as *Attachments) Len() int {
	return len(as.items)
}

// List returns a copy of the attachments in order
func (as *Attachments) List() []Attachment {
	l := make([]Attachment, len(as.items))
	copy(l, as.items)
	return l
}
