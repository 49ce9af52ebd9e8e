package storage

// storage contains the KeyValue interface for working with a persistent key/
// value store, an implementation for BadgerDB, and the send journal built on
// top of it. Apart from the Journal, the storage package isn't designed to
// represent _what_ is stored in the database, and deals only in opaque binary
// data.
