// Package store persists analysis results in an embedded badger database,
// keyed by the content hash of the analyzed file and the analysis profile.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/RyanBlaney/sonido-beat/logging"
)

// recordPrefix namespaces result records in the key space
const recordPrefix = 'r'

// Key identifies a stored result: the file content and the configuration
// it was analyzed with
type Key struct {
	Content uint64
	Profile uint64
}

func (k Key) bytes() []byte {
	b := make([]byte, 17)
	b[0] = recordPrefix
	binary.BigEndian.PutUint64(b[1:], k.Content)
	binary.BigEndian.PutUint64(b[9:], k.Profile)
	return b
}

func keyFromBytes(b []byte) (Key, bool) {
	if len(b) != 17 || b[0] != recordPrefix {
		return Key{}, false
	}
	return Key{
		Content: binary.BigEndian.Uint64(b[1:]),
		Profile: binary.BigEndian.Uint64(b[9:]),
	}, true
}

// String renders the key as content:profile in hex
func (k Key) String() string {
	return fmt.Sprintf("%016x:%016x", k.Content, k.Profile)
}

// Record is one stored analysis
type Record struct {
	Key      Key             `json:"-"`
	Path     string          `json:"path"`
	StoredAt time.Time       `json:"stored_at"`
	Result   json.RawMessage `json:"result"`
}

// Store is a compressed result cache. It is safe for concurrent use.
type Store struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  logging.Logger
	now     func() time.Time
}

// Open opens or creates the store in dir. An empty dir keeps the store in
// memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logging.WithFields(logging.Fields{
		"component": "badger",
	})})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open result store %s: %w", dir, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		logger: logging.WithFields(logging.Fields{
			"component": "result_store",
		}),
		now: time.Now,
	}, nil
}

// Close flushes and closes the database
func (s *Store) Close() error {
	s.decoder.Close()
	encErr := s.encoder.Close()
	return errors.Join(s.db.Close(), encErr)
}

// Put stores result, a JSON document, under key
func (s *Store) Put(key Key, path string, result json.RawMessage) error {
	data, err := json.Marshal(Record{
		Path:     path,
		StoredAt: s.now().UTC(),
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	compressed := s.encoder.EncodeAll(data, nil)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key.bytes(), compressed)
	}); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}

	s.logger.Debug("Result stored", logging.Fields{
		"key":        key.String(),
		"path":       path,
		"raw":        len(data),
		"compressed": len(compressed),
	})
	return nil
}

// Get returns the record stored under key. ok is false when there is none.
func (s *Store) Get(key Key) (rec Record, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.bytes())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = s.decode(key, val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Has reports whether a record exists under key
func (s *Store) Has(key Key) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key.bytes())
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the record under key
func (s *Store) Delete(key Key) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.bytes())
	})
}

// Each calls fn for every stored record in key order. Iteration stops at
// the first error fn returns.
func (s *Store) Each(fn func(Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{recordPrefix}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key, ok := keyFromBytes(item.Key())
			if !ok {
				continue
			}

			var rec Record
			if err := item.Value(func(val []byte) error {
				var err error
				rec, err = s.decode(key, val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) decode(key Key, val []byte) (Record, error) {
	data, err := s.decoder.DecodeAll(val, nil)
	if err != nil {
		return Record{}, fmt.Errorf("decompress %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	rec.Key = key
	return rec, nil
}

// HashFile returns the xxhash64 of the file contents
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}

// HashProfile returns the xxhash64 of the JSON encoding of v, used to key
// results by the configuration that produced them
func HashProfile(v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return xxhash.Checksum64(data), nil
}

// KeyFor hashes path and profile into a store key
func KeyFor(path string, profile any) (Key, error) {
	content, err := HashFile(path)
	if err != nil {
		return Key{}, err
	}
	p, err := HashProfile(profile)
	if err != nil {
		return Key{}, err
	}
	return Key{Content: content, Profile: p}, nil
}

// badgerLogger routes badger's internal logging to the debug level, with
// warnings and errors kept at their own level
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(nil, trim(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(trim(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(trim(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(trim(format, args...))
}

func trim(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
