package storage

import "errors"

// NoOpDB is used when the journal is turned off while still preserving our
// interactions with an abstract database. The strategy is to return whatever
// value will prevent the calling context from further interacting with the
// storage layer.
//
// For put and read operations, we always return an error, so the caller
// knows that no actual data has been read or written. Scans find nothing.
//
// For database-wide operations, such as cleaning up or closing the database,
// we always return a nil error. This is because, since there is nothing to
// close or clean up, the operation is always successful.
type NoOpDB struct{}

// ErrNoOp is returned for every write to or read from a NoOpDB
var ErrNoOp = errors.New("the no-op database stores nothing")

// Put always returns an error so callers don't assume a new key has been
// written.
func (n *NoOpDB) Put(KVEntry) error {
	return ErrNoOp
}

// Read always returns an error so callers don't assume a key has been read.
func (n *NoOpDB) Read(key []byte) (KVEntry, error) {
	return KVEntry{}, ErrNoOp
}

// Scan never finds anything
func (n *NoOpDB) Scan(prefix []byte) ([]KVEntry, error) {
	return nil, nil
}

// Cleanup always returns nil in order to prevent retries, since we want to
// keep the program humming along without touching the storage layer.
func (n *NoOpDB) Cleanup() error {
	return nil
}

// Close is no-op
func (n *NoOpDB) Close() error {
	return nil
}
