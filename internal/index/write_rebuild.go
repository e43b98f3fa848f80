package index

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"kumo/internal/domain/content"
)

type RebuildOptions struct {
	IncludeDraft bool
}

// Rebuild replaces every index with articles. Cached renders survive only
// for slugs that still exist; their fingerprints decide freshness on read.
func (s *Store) Rebuild(articles []content.Article, opt RebuildOptions) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bMeta, bIdxDate, bIdxTag, bTagName} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return errors.Wrapf(err, "drop bucket %s", name)
			}
		}

		metaB, err := tx.CreateBucket(bMeta)
		if err != nil {
			return err
		}
		dateB, err := tx.CreateBucket(bIdxDate)
		if err != nil {
			return err
		}
		tagB, err := tx.CreateBucket(bIdxTag)
		if err != nil {
			return err
		}
		nameB, err := tx.CreateBucket(bTagName)
		if err != nil {
			return err
		}

		live := make(map[string]struct{}, len(articles))
		for _, a := range articles {
			m := a.Meta
			if m.Draft && !opt.IncludeDraft {
				continue
			}
			if strings.TrimSpace(m.Slug) == "" {
				continue
			}
			ab, err := json.Marshal(a)
			if err != nil {
				return errors.Wrapf(err, "encode %s", m.Slug)
			}
			if err := metaB.Put([]byte(m.Slug), ab); err != nil {
				return err
			}
			live[m.Slug] = struct{}{}

			key := makeTimeSlugKey(m.Date.UnixNano(), m.Slug)
			if err := dateB.Put(key, []byte{1}); err != nil {
				return err
			}

			for _, tag := range m.Tags {
				lower := []byte(tagKey(tag))
				if len(lower) == 0 {
					continue
				}
				sb, err := tagB.CreateBucketIfNotExists(lower)
				if err != nil {
					return err
				}
				if err := sb.Put(key, []byte{1}); err != nil {
					return err
				}
				if nameB.Get(lower) == nil {
					if err := nameB.Put(lower, []byte(tag)); err != nil {
						return err
					}
				}
			}
		}

		renderB, err := tx.CreateBucketIfNotExists(bRender)
		if err != nil {
			return err
		}
		var stale [][]byte
		if err := renderB.ForEach(func(k, _ []byte) error {
			if _, ok := live[string(k)]; !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := renderB.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func tagKey(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
