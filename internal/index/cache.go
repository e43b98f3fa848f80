package index

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"
)

type cacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Value       json.RawMessage `json:"value"`
}

// PutRender stores the rendered form of slug under fingerprint, replacing any
// older render.
func (s *Store) PutRender(slug, fingerprint string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "index: encode render %s", slug)
	}
	entry, err := json.Marshal(cacheEntry{Fingerprint: fingerprint, Value: raw})
	if err != nil {
		return errors.Wrapf(err, "index: encode render %s", slug)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bRender)
		if err != nil {
			return err
		}
		return b.Put([]byte(slug), entry)
	})
}

// GetRender decodes the cached render of slug into dst. It reports false when
// nothing is cached or the cached render has another fingerprint.
func (s *Store) GetRender(slug, fingerprint string, dst any) (bool, error) {
	var hit bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bRender)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return nil
		}
		var e cacheEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return errors.Wrapf(err, "index: decode render %s", slug)
		}
		if e.Fingerprint != fingerprint {
			return nil
		}
		if err := json.Unmarshal(e.Value, dst); err != nil {
			return errors.Wrapf(err, "index: decode render %s", slug)
		}
		hit = true
		return nil
	})
	return hit, err
}
