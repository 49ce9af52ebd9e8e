package compose

import (
	"fmt"
	"strings"
)

// Sender is who the message is from
type Sender struct {
	// Optional display name, encoded in the From header
	Name string
	// Bare address used for MAIL FROM and the From header
	Address string
}

// ParseSender parses "Display Name:address@example.com" or a bare address.
// The first colon separates the name from the address, so names can't
// contain one. The returned Sender holds whatever could be parsed even when
// the error is non-nil.
func ParseSender(spec string) (Sender, error) {
	s := Sender{Address: spec}
	if n, a, ok := strings.Cut(spec, ":"); ok {
		s.Name = n
		s.Address = a
	}

	if s.Address == "" || !strings.Contains(s.Address, "@") {
		return s, fmt.Errorf("%v is not a valid email address!", spec)
	}
	return s, nil
}

// String renders the sender the way the From header does, minus encoding
func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%v <%v>", s.Name, s.Address)
}
