package index

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"kumo/internal/domain/content"
)

var ErrNotFound = errors.New("not found")

type ListOptions struct {
	Page int
	// Size 0 lists everything.
	Size int
}

type TagCount struct {
	Name  string
	Count int
}

func (s *Store) Get(slug string) (content.Article, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return content.Article{}, ErrNotFound
	}
	var a content.Article
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bMeta)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &a)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return a, errors.Wrapf(err, "index: get %s", slug)
	}
	return a, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	return page, size
}

// List returns article metadata newest first.
func (s *Store) List(opt ListOptions) ([]content.ArticleMeta, error) {
	var out []content.ArticleMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		out = collect(tx.Bucket(bIdxDate), tx.Bucket(bMeta), opt)
		return nil
	})
	return out, err
}

// ListByTag matches tags case-insensitively.
func (s *Store) ListByTag(tag string, opt ListOptions) ([]content.ArticleMeta, error) {
	key := tagKey(tag)
	if key == "" {
		return nil, nil
	}
	var out []content.ArticleMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bIdxTag)
		if parent == nil {
			return nil
		}
		out = collect(parent.Bucket([]byte(key)), tx.Bucket(bMeta), opt)
		return nil
	})
	return out, err
}

func collect(idx, metaB *bolt.Bucket, opt ListOptions) []content.ArticleMeta {
	if idx == nil || metaB == nil {
		return nil
	}
	page, size := normalizePaging(opt.Page, opt.Size)
	skip := (page - 1) * size

	var out []content.ArticleMeta
	cur := idx.Cursor()
	for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
		slug := slugFromTimeSlugKey(k)
		if slug == "" {
			continue
		}
		v := metaB.Get([]byte(slug))
		if v == nil {
			continue
		}
		var a content.Article
		if err := json.Unmarshal(v, &a); err != nil {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, a.Meta)
		if size > 0 && len(out) >= size {
			break
		}
	}
	return out
}

// Tags returns every tag with its article count, most used first.
func (s *Store) Tags() ([]TagCount, error) {
	var out []TagCount
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bIdxTag)
		names := tx.Bucket(bTagName)
		if parent == nil {
			return nil
		}
		return parent.ForEachBucket(func(k []byte) error {
			name := string(k)
			if names != nil {
				if v := names.Get(k); v != nil {
					name = string(v)
				}
			}
			out = append(out, TagCount{Name: name, Count: parent.Bucket(k).Stats().KeyN})
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, err
}

func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bMeta); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}
