package compose

import "strings"

// RecipientKind selects one of the three recipient sets
type RecipientKind int

const (
	To RecipientKind = iota
	Cc
	Bc // blind copy
)

// ParseRecipientKind maps "to", "cc" and "bc"/"bcc" to a RecipientKind.
// Anything else is To.
func ParseRecipientKind(s string) RecipientKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cc":
		return Cc
	case "bc", "bcc":
		return Bc
	default:
		return To
	}
}

func (k RecipientKind) String() string {
	switch k {
	case Cc:
		return "cc"
	case Bc:
		return "bc"
	default:
		return "to"
	}
}

// Recipients holds the to, cc and blind-copy address lists. Each keeps
// insertion order and allows duplicates. The zero value is empty and ready
// to use.
type Recipients struct {
	to []string
	cc []string
	bc []string
}

func (r *Recipients) list(k RecipientKind) *[]string {
	switch k {
	case Cc:
		return &r.cc
	case Bc:
		return &r.bc
	default:
		return &r.to
	}
}

// Add appends addrs to the k list
func (r *Recipients) Add(k RecipientKind, addrs ...string) {
	l := r.list(k)
	*l = append(*l, addrs...)
}

// Prepend puts addr at the front of the k list
func (r *Recipients) Prepend(k RecipientKind, addr string) {
	l := r.list(k)
	*l = append([]string{addr}, *l...)
}

// Contains reports whether addr is in the k list
func (r *Recipients) Contains(k RecipientKind, addr string) bool {
	for _, a := range *r.list(k) {
		if a == addr {
			return true
		}
	}
	return false
}

// Remove deletes every occurrence of addrs from the given lists, or from all
// three if no kinds are given.
func (r *Recipients) Remove(addrs []string, kinds ...RecipientKind) {
	if len(kinds) == 0 {
		kinds = []RecipientKind{To, Cc, Bc}
	}
	drop := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		drop[a] = struct{}{}
	}
	for _, k := range kinds {
		l := r.list(k)
		kept := (*l)[:0]
		for _, a := range *l {
			if _, ok := drop[a]; !ok {
				kept = append(kept, a)
			}
		}
		*l = kept
	}
}

// Clear empties the given lists, or all three if no kinds are given
func (r *Recipients) Clear(kinds ...RecipientKind) {
	if len(kinds) == 0 {
		kinds = []RecipientKind{To, Cc, Bc}
	}
	for _, k := range kinds {
		*r.list(k) = nil
	}
}

// Get returns a copy of the k list
func (r *Recipients) Get(k RecipientKind) []string {
	l := *r.list(k)
	c := make([]string, len(l))
	copy(c, l)
	return c
}

// Len returns the size of the k list
func (r *Recipients) Len(k RecipientKind) int {
	return len(*r.list(k))
}

// Envelope lists every address in the order RCPT TO commands go out: to,
// then blind copies, then cc.
func (r *Recipients) Envelope() []string {
	e := make([]string, 0, len(r.to)+len(r.bc)+len(r.cc))
	e = append(e, r.to...)
	e = append(e, r.bc...)
	e = append(e, r.cc...)
	return e
}
