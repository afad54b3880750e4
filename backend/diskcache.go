package backend

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// diskCacheName is the persisted TTL-cache file under the user cache dir.
const diskCacheName = "sources.csv"

// DiskCache persists slow-changing introspection values across processes as
// delimited text: one key,value,timestamp record per line. It is an optional
// convenience; a cache that cannot be read or written behaves as empty.
type DiskCache struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewDiskCache returns a cache persisted at path.
func NewDiskCache(path string) *DiskCache {
	return &DiskCache{path: path, now: time.Now}
}

// OpenDefaultDiskCache places the cache file under the user cache dir.
// Returns nil when no cache dir is available; a nil cache misses always.
func OpenDefaultDiskCache() *DiskCache {
	dir, err := cacheDir()
	if err != nil {
		return nil
	}
	return NewDiskCache(filepath.Join(dir, diskCacheName))
}

// Get returns the persisted value for key when younger than ttl.
func (d *DiskCache) Get(key string, ttl time.Duration) (string, bool) {
	if d == nil {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.read()
	if err != nil {
		return "", false
	}
	e, ok := entries[key]
	if !ok {
		return "", false
	}
	if d.now().Sub(time.Unix(e.stamp, 0)) > ttl {
		return "", false
	}
	return e.value, true
}

// Put persists value under key with the current timestamp.
func (d *DiskCache) Put(key, value string) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.read()
	if err != nil {
		entries = map[string]diskEntry{}
	}
	entries[key] = diskEntry{value: value, stamp: d.now().Unix()}
	return d.write(entries)
}

type diskEntry struct {
	value string
	stamp int64
}

func (d *DiskCache) read() (map[string]diskEntry, error) {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]diskEntry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]diskEntry, len(records))
	for _, rec := range records {
		stamp, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			continue
		}
		entries[rec[0]] = diskEntry{value: rec[1], stamp: stamp}
	}
	return entries, nil
}

func (d *DiskCache) write(entries map[string]diskEntry) error {
	tmp := d.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to write disk cache: %w", err)
	}

	cw := csv.NewWriter(f)
	for key, e := range entries {
		if err := cw.Write([]string{key, e.value, strconv.FormatInt(e.stamp, 10)}); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, d.path)
}
