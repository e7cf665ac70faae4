package store

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"
	"github.com/hatlonely/hashorm/ref"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type CachedStoreOptions struct {
	// Store 被缓存的底层存储配置
	Store *ref.TypeOptions `cfg:"store" validate:"required"`

	// Size 缓存字节数，freecache 最小为 512KB
	Size int `cfg:"size" def:"10485760"`

	// TTL 缓存过期时间，0 表示不过期
	TTL time.Duration `cfg:"ttl" def:"0"`
}

const cacheStripes = 256

// cacheStripe 一组 key 共享的写入版本，回填缓存前需要确认版本没有变化
type cacheStripe struct {
	mu         sync.Mutex
	generation uint64
}

// CachedStore 在进程内缓存 HGetAll 的结果，写入和删除时失效对应 key
//
// 只缓存非空的 hash，集合与搜索请求直接透传到底层存储。
// 读取期间发生过写入的结果不会回填缓存
type CachedStore struct {
	Store

	cache   *freecache.Cache
	ttl     time.Duration
	stripes [cacheStripes]cacheStripe
}

func NewCachedStoreWithOptions(options *CachedStoreOptions) (*CachedStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	store, err := NewStoreWithOptions(options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying store")
	}

	return NewCachedStore(store, options.Size, options.TTL), nil
}

func NewCachedStore(store Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: freecache.NewCache(size),
		ttl:   ttl,
	}
}

func (s *CachedStore) stripe(key string) *cacheStripe {
	return &s.stripes[xxhash.Sum64String(key)%cacheStripes]
}

func (s *CachedStore) generation(key string) uint64 {
	stripe := s.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	return stripe.generation
}

// invalidate 在底层写入之后调用，推进版本并删除缓存
func (s *CachedStore) invalidate(key string) {
	stripe := s.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	stripe.generation++
	s.cache.Del([]byte(key))
}

// fill 版本与读取前一致时才写入缓存
func (s *CachedStore) fill(key string, generation uint64, buf []byte) {
	stripe := s.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	if stripe.generation != generation {
		return
	}
	// value 超过缓存分段大小时 Set 会失败，此时只是不缓存
	_ = s.cache.Set([]byte(key), buf, int(s.ttl/time.Second))
}

func (s *CachedStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	err := s.Store.HSet(ctx, key, fields)
	s.invalidate(key)
	return err
}

func (s *CachedStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if buf, err := s.cache.Get([]byte(key)); err == nil {
		var fields map[string]string
		if err := msgpack.Unmarshal(buf, &fields); err == nil {
			return fields, nil
		}
		s.cache.Del([]byte(key))
	}

	generation := s.generation(key)
	fields, err := s.Store.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return fields, nil
	}

	buf, err := msgpack.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack.Marshal failed")
	}
	s.fill(key, generation, buf)
	return fields, nil
}

func (s *CachedStore) Del(ctx context.Context, key string) error {
	err := s.Store.Del(ctx, key)
	s.invalidate(key)
	return err
}

func (s *CachedStore) HitCount() int64 {
	return s.cache.HitCount()
}

func (s *CachedStore) Close() error {
	s.cache.Clear()
	return s.Store.Close()
}
