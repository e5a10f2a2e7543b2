package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jonwraymond/wikigraph/observe"
)

// BadgerConfig configures a BadgerCache.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory (tests, ephemeral runs).
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives badger's internal log lines. Nil silences them.
	Logger observe.Logger

	// GCInterval is how often value-log GC runs. Zero disables it.
	// Default: 10 minutes for on-disk databases.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC. Default: 0.5.
	GCDiscardRatio float64

	// Now is the time source for expiry. Default: time.Now.
	Now Clock
}

// BadgerCache is a persistent Cache backed by badger. Each value carries
// its write time and TTL and is checked on read exactly like MemoryCache.
// Badger's own expiry, which has whole-second resolution, is set a second
// past the TTL and only reclaims space.
type BadgerCache struct {
	db        *badger.DB
	now       Clock
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenBadger opens (or creates) a badger-backed cache.
func OpenBadger(cfg BadgerConfig) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache: badger path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("cache: create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &BadgerCache{db: db, now: now, stop: make(chan struct{})}
	if !cfg.InMemory {
		interval := cfg.GCInterval
		if interval == 0 {
			interval = 10 * time.Minute
		}
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		if interval > 0 {
			c.wg.Add(1)
			go c.runGC(interval, ratio)
		}
	}
	return c, nil
}

// Get returns the value stored under key while now - storedAt < ttl.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	storedAt, ttl, value, ok := unpackEntry(raw)
	if !ok || c.now().Sub(storedAt) >= ttl {
		return nil, false
	}
	return value, true
}

// Set stores value with its TTL. A non-positive ttl stores nothing.
func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	raw := packEntry(c.now(), ttl, value)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), raw).WithTTL(ttl + time.Second))
	})
}

const entryHeader = 16

// packEntry prefixes value with storedAt (unix nanos) and ttl, big-endian.
func packEntry(storedAt time.Time, ttl time.Duration, value []byte) []byte {
	raw := make([]byte, entryHeader+len(value))
	binary.BigEndian.PutUint64(raw[0:8], uint64(storedAt.UnixNano()))
	binary.BigEndian.PutUint64(raw[8:16], uint64(ttl))
	copy(raw[entryHeader:], value)
	return raw
}

func unpackEntry(raw []byte) (storedAt time.Time, ttl time.Duration, value []byte, ok bool) {
	if len(raw) < entryHeader {
		return time.Time{}, 0, nil, false
	}
	storedAt = time.Unix(0, int64(binary.BigEndian.Uint64(raw[0:8])))
	ttl = time.Duration(binary.BigEndian.Uint64(raw[8:16]))
	return storedAt, ttl, raw[entryHeader:], true
}

// Delete removes key. Idempotent.
func (c *BadgerCache) Delete(_ context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Ping verifies the database accepts reads.
func (c *BadgerCache) Ping(_ context.Context) error {
	if c.db.IsClosed() {
		return errors.New("cache: badger is closed")
	}
	return c.db.View(func(*badger.Txn) error { return nil })
}

// Close stops GC and closes the database.
func (c *BadgerCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		err = c.db.Close()
	})
	return err
}

func (c *BadgerCache) runGC(interval time.Duration, ratio float64) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			// Keep collecting until badger reports nothing left to rewrite.
			for c.db.RunValueLogGC(ratio) == nil {
			}
		}
	}
}

type badgerLogger struct {
	logger observe.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

var _ Cache = (*BadgerCache)(nil)
