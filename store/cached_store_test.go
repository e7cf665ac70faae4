package store

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCachedStore(t *testing.T) {
	Convey("CachedStore", t, func() {
		backend := NewMapStoreWithOptions()
		store := NewCachedStore(backend, 1024*1024, time.Minute)
		ctx := context.Background()

		So(store.HSet(ctx, "user:1", map[string]string{"id": "1", "name": "bob"}), ShouldBeNil)

		Convey("第二次读取命中缓存", func() {
			fields, err := store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldResemble, map[string]string{"id": "1", "name": "bob"})
			So(store.HitCount(), ShouldEqual, 0)

			fields, err = store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldResemble, map[string]string{"id": "1", "name": "bob"})
			So(store.HitCount(), ShouldEqual, 1)
		})

		Convey("写入后缓存失效", func() {
			_, _ = store.HGetAll(ctx, "user:1")
			So(store.HSet(ctx, "user:1", map[string]string{"name": "alice"}), ShouldBeNil)

			fields, err := store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields["name"], ShouldEqual, "alice")
		})

		Convey("删除后缓存失效", func() {
			_, _ = store.HGetAll(ctx, "user:1")
			So(store.Del(ctx, "user:1"), ShouldBeNil)

			fields, err := store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldBeEmpty)
		})

		Convey("空 hash 不缓存", func() {
			_, _ = store.HGetAll(ctx, "user:2")
			So(backend.HSet(ctx, "user:2", map[string]string{"id": "2"}), ShouldBeNil)

			fields, err := store.HGetAll(ctx, "user:2")
			So(err, ShouldBeNil)
			So(fields["id"], ShouldEqual, "2")
		})

		Convey("集合操作透传", func() {
			So(store.SAdd(ctx, "users", "user:1"), ShouldBeNil)
			keys, _, err := backend.SScan(ctx, "users", 0, 10)
			So(err, ShouldBeNil)
			So(keys, ShouldResemble, []string{"user:1"})
		})

		Convey("通过 ref 创建", func() {
			s, err := NewStoreWithOptions(refOptions("CachedStore", &CachedStoreOptions{
				Store: refOptions("MapStore", nil),
				Size:  1024 * 1024,
			}))
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &CachedStore{})
			So(s.Close(), ShouldBeNil)
		})
	})
}

// pausingStore 在 HGetAll 读到数据之后暂停，直到 resume 被关闭
type pausingStore struct {
	*MapStore

	once   sync.Once
	paused chan struct{}
	resume chan struct{}
}

func (s *pausingStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.MapStore.HGetAll(ctx, key)
	s.once.Do(func() {
		close(s.paused)
		<-s.resume
	})
	return fields, err
}

func TestCachedStoreConcurrentInvalidation(t *testing.T) {
	Convey("读取期间的写入不会被旧值覆盖", t, func() {
		ctx := context.Background()
		backend := &pausingStore{
			MapStore: NewMapStoreWithOptions(),
			paused:   make(chan struct{}),
			resume:   make(chan struct{}),
		}
		store := NewCachedStore(backend, 1024*1024, 0)
		So(backend.MapStore.HSet(ctx, "k", map[string]string{"v": "old"}), ShouldBeNil)

		type result struct {
			fields map[string]string
			err    error
		}
		done := make(chan result)
		go func() {
			fields, err := store.HGetAll(ctx, "k")
			done <- result{fields, err}
		}()

		<-backend.paused
		So(store.HSet(ctx, "k", map[string]string{"v": "new"}), ShouldBeNil)
		close(backend.resume)

		r := <-done
		So(r.err, ShouldBeNil)
		So(r.fields, ShouldResemble, map[string]string{"v": "old"})

		fields, err := store.HGetAll(ctx, "k")
		So(err, ShouldBeNil)
		So(fields, ShouldResemble, map[string]string{"v": "new"})

		fields, err = store.HGetAll(ctx, "k")
		So(err, ShouldBeNil)
		So(fields, ShouldResemble, map[string]string{"v": "new"})
		So(store.HitCount(), ShouldEqual, 1)

		Convey("删除同样阻止回填", func() {
			backend.once = sync.Once{}
			backend.paused = make(chan struct{})
			backend.resume = make(chan struct{})
			So(backend.MapStore.HSet(ctx, "d", map[string]string{"v": "old"}), ShouldBeNil)

			go func() {
				fields, err := store.HGetAll(ctx, "d")
				done <- result{fields, err}
			}()
			<-backend.paused
			So(store.Del(ctx, "d"), ShouldBeNil)
			close(backend.resume)
			<-done

			fields, err := store.HGetAll(ctx, "d")
			So(err, ShouldBeNil)
			So(fields, ShouldBeEmpty)
		})
	})
}
