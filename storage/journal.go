package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"
)

const journalPrefix = "sent/"

// Record describes one attempt to send a message
type Record struct {
	ID      uuid.UUID `yaml:"id"`
	Sent    time.Time `yaml:"sent"`
	Subject string    `yaml:"subject"`
	From    string    `yaml:"from"`
	To      []string  `yaml:"to,omitempty"`
	Cc      []string  `yaml:"cc,omitempty"`
	Bcc     []string  `yaml:"bcc,omitempty"`
	OK      bool      `yaml:"ok"`
	Errors  []string  `yaml:"errors,omitempty"`
}

// Journal keeps a Record of every send in a KeyValue. Records expire along
// with the KeyValue's keys.
type Journal struct {
	kv KeyValue
}

// NewJournal returns a Journal backed by kv
func NewJournal(kv KeyValue) *Journal {
	return &Journal{kv: kv}
}

// key sorts records by the time they were sent
func (r Record) key() []byte {
	return []byte(fmt.Sprintf("%v%020d/%v", journalPrefix, r.Sent.UnixNano(), r.ID))
}

// Save stores r, assigning it an ID and a send time if it has none. Returns
// the record as stored.
func (j *Journal) Save(r Record) (Record, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Sent.IsZero() {
		r.Sent = time.Now()
	}
	r.Sent = r.Sent.UTC()

	b, err := yaml.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("can't encode the journal record: %v", err)
	}

	err = j.kv.Put(KVEntry{Key: r.key(), Value: b})
	if err != nil {
		return Record{}, fmt.Errorf("can't save the journal record: %v", err)
	}
	return r, nil
}

// List returns every unexpired record, oldest first
func (j *Journal) List() ([]Record, error) {
	entries, err := j.kv.Scan([]byte(journalPrefix))
	if err != nil {
		return nil, fmt.Errorf("can't read the journal: %v", err)
	}

	rs := make([]Record, 0, len(entries))
	for _, e := range entries {
		var r Record
		if err := yaml.Unmarshal(e.Value, &r); err != nil {
			return nil, fmt.Errorf("can't decode the journal record %s: %v", e.Key, err)
		}
		rs = append(rs, r)
	}
	return rs, nil
}
