package index

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"
)

type Store struct {
	db *bolt.DB
}

type OpenOptions struct {
	Path string // e.g. ".kumo/index.db"
}

// Open opens or creates the index at opt.Path. An index left by an older
// layout is emptied; the next Rebuild fills it again.
func Open(opt OpenOptions) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("index: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
		return nil, errors.Wrap(err, "index: create dir")
	}
	db, err := bolt.Open(opt.Path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "index: open %s", opt.Path)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "index: migrate %s", opt.Path)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(bSchema)
		if err != nil {
			return err
		}
		got := string(sb.Get(keyVersion))
		if got == schemaVersion {
			return nil
		}
		if got != "" {
			log.Printf("[index] schema %s -> %s, dropping cached data", got, schemaVersion)
		}
		for _, name := range allBuckets() {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return errors.Wrapf(err, "drop bucket %s", name)
			}
		}
		return sb.Put(keyVersion, []byte(schemaVersion))
	})
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
