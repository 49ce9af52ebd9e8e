package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecipientKind(t *testing.T) {
	assert.Equal(t, To, ParseRecipientKind("to"))
	assert.Equal(t, Cc, ParseRecipientKind("CC"))
	assert.Equal(t, Bc, ParseRecipientKind("bc"))
	assert.Equal(t, Bc, ParseRecipientKind("bcc"))
	assert.Equal(t, To, ParseRecipientKind("whatever"))
}

func TestRecipientsAddKeepsOrderAndDuplicates(t *testing.T) {
	var r Recipients
	r.Add(To, "b@y.com", "c@y.com")
	r.Add(To, "b@y.com")
	r.Add(Cc, "cc@y.com")

	assert.Equal(t, []string{"b@y.com", "c@y.com", "b@y.com"}, r.Get(To))
	assert.Equal(t, []string{"cc@y.com"}, r.Get(Cc))
	assert.Empty(t, r.Get(Bc))
	assert.Equal(t, 3, r.Len(To))
}

func TestRecipientsPrependAndContains(t *testing.T) {
	var r Recipients
	r.Add(To, "b@y.com")
	r.Prepend(To, "first@y.com")

	assert.Equal(t, []string{"first@y.com", "b@y.com"}, r.Get(To))
	assert.True(t, r.Contains(To, "first@y.com"))
	assert.False(t, r.Contains(Cc, "first@y.com"))
}

func TestRecipientsRemove(t *testing.T) {
	testCases := []struct {
		description string
		kinds       []RecipientKind
		to          []string
		cc          []string
		bc          []string
	}{
		{
			description: "from every list",
			to:          []string{"keep@y.com"},
			cc:          []string{},
			bc:          []string{},
		},
		{
			description: "from cc only",
			kinds:       []RecipientKind{Cc},
			to:          []string{"drop@y.com", "keep@y.com", "drop@y.com"},
			cc:          []string{},
			bc:          []string{"drop@y.com"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var r Recipients
			r.Add(To, "drop@y.com", "keep@y.com", "drop@y.com")
			r.Add(Cc, "drop@y.com")
			r.Add(Bc, "drop@y.com")

			r.Remove([]string{"drop@y.com"}, tc.kinds...)

			assert.Equal(t, tc.to, r.Get(To))
			assert.Equal(t, tc.cc, r.Get(Cc))
			assert.Equal(t, tc.bc, r.Get(Bc))
		})
	}
}

func TestRecipientsClear(t *testing.T) {
	var r Recipients
	r.Add(To, "a@y.com")
	r.Add(Cc, "b@y.com")
	r.Add(Bc, "c@y.com")

	r.Clear(Bc)
	assert.Equal(t, 0, r.Len(Bc))
	assert.Equal(t, 1, r.Len(To))

	r.Clear()
	assert.Equal(t, 0, r.Len(To))
	assert.Equal(t, 0, r.Len(Cc))
}

func TestEnvelopeOrder(t *testing.T) {
	var r Recipients
	r.Add(Cc, "cc@y.com")
	r.Add(Bc, "bc@y.com")
	r.Add(To, "to1@y.com", "to2@y.com")

	assert.Equal(
		t,
		[]string{"to1@y.com", "to2@y.com", "bc@y.com", "cc@y.com"},
		r.Envelope(),
	)
}
