package storage

import (
	"errors"
	"fmt"
	"time"
)

const defaultKeyTTL = time.Duration(720) * time.Hour

// KVConfig contains settings specific to BadgerDB connections
type KVConfig struct {
	StorageDirPath string
	KeyTTLDuration time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface. Validation is
// performed here.
func (kc *KVConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the journal config: %v", err)
	}

	sp, ok := v["storageDir"]
	if !ok || sp == "" {
		return errors.New("the journal config must include a storage directory")
	}
	kc.StorageDirPath = sp

	if t, ok := v["keyTTL"]; ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("can't parse the key TTL as a duration: %v", err)
		}
		kc.KeyTTLDuration = d
	}

	return nil
}

// CheckAndSetDefaults validates kc and either returns a copy of kc with
// default settings applied or returns an error due to an invalid
// configuration. A KVConfig without a storage directory is valid and means
// the journal is off.
func (kc *KVConfig) CheckAndSetDefaults() (KVConfig, error) {
	c := *kc
	if c.KeyTTLDuration < 0 {
		return KVConfig{}, errors.New("the key TTL can't be negative")
	}
	if c.KeyTTLDuration == 0 {
		c.KeyTTLDuration = defaultKeyTTL
	}
	return c, nil
}

// KeyValue exposes a common interface for performing CRUD operations on an
// underlying storage layer.
//
// Implentations need to include connection logic in code to initialize
// a Store.
type KeyValue interface {
	// Replace the value of an entry or create a new one if it doesn't exist
	Put(KVEntry) error
	// Return an entry given its key
	Read(key []byte) (KVEntry, error)
	// Return every entry whose key begins with prefix, in key order
	Scan(prefix []byte) ([]KVEntry, error)
	// Cleanup performs routine deletion of old records. We assign
	// TTLs to KV pairs and delete them periodically.
	Cleanup() error
	// Drain/tear down the connection, or something analogous for
	// an embedded database
	Close() error
}

// KVEntry is what we'll write to and read from the KV store
type KVEntry struct {
	Key   []byte
	Value []byte
}

// Open returns a BadgerDB for conf, or a NoOpDB if conf has no storage
// directory.
func Open(conf KVConfig) (KeyValue, error) {
	if conf.StorageDirPath == "" {
		return &NoOpDB{}, nil
	}
	return NewBadgerDB(&conf)
}
