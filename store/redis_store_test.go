package store

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStoreWithOptions failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewRedisStoreWithOptions(t *testing.T) {
	Convey("NewRedisStoreWithOptions", t, func() {
		Convey("options 为 nil", func() {
			_, err := NewRedisStoreWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("未配置地址", func() {
			_, err := NewRedisStoreWithOptions(&RedisStoreOptions{})
			So(err, ShouldNotBeNil)
		})

		Convey("连接失败", func() {
			mr := miniredis.RunT(t)
			addr := mr.Addr()
			mr.Close()
			_, err := NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: addr, MaxRetries: -1})
			So(err, ShouldNotBeNil)
		})

		Convey("通过 ref 创建", func() {
			mr := miniredis.RunT(t)
			store, err := NewStoreWithOptions(refOptions("RedisStore", &RedisStoreOptions{Endpoint: mr.Addr()}))
			So(err, ShouldBeNil)
			So(store, ShouldHaveSameTypeAs, &RedisStore{})
			So(store.Close(), ShouldBeNil)
		})
	})
}

func TestRedisStoreHash(t *testing.T) {
	Convey("RedisStore hash 操作", t, func() {
		store, mr := newTestRedisStore(t)
		ctx := context.Background()

		Convey("HSet 后 HGetAll", func() {
			So(store.HSet(ctx, "user:1", map[string]string{"id": "1", "name": "bob"}), ShouldBeNil)
			So(mr.HGet("user:1", "name"), ShouldEqual, "bob")

			fields, err := store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldResemble, map[string]string{"id": "1", "name": "bob"})
		})

		Convey("HSet 合并已有字段", func() {
			So(store.HSet(ctx, "user:1", map[string]string{"id": "1", "name": "bob"}), ShouldBeNil)
			So(store.HSet(ctx, "user:1", map[string]string{"name": "alice"}), ShouldBeNil)

			fields, err := store.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldResemble, map[string]string{"id": "1", "name": "alice"})
		})

		Convey("空字段不写入", func() {
			So(store.HSet(ctx, "user:2", nil), ShouldBeNil)
			So(mr.Exists("user:2"), ShouldBeFalse)
		})

		Convey("不存在的 key 返回空 map", func() {
			fields, err := store.HGetAll(ctx, "user:missing")
			So(err, ShouldBeNil)
			So(fields, ShouldBeEmpty)
		})

		Convey("Del", func() {
			So(store.HSet(ctx, "user:1", map[string]string{"id": "1"}), ShouldBeNil)
			So(store.Del(ctx, "user:1"), ShouldBeNil)
			So(mr.Exists("user:1"), ShouldBeFalse)
			So(store.Del(ctx, "user:1"), ShouldBeNil)
		})
	})
}

func TestRedisStoreSet(t *testing.T) {
	Convey("RedisStore set 操作", t, func() {
		store, mr := newTestRedisStore(t)
		ctx := context.Background()

		So(store.SAdd(ctx, "users", "user:1", "user:2", "user:3"), ShouldBeNil)
		So(store.SAdd(ctx, "users"), ShouldBeNil)
		members, err := mr.Members("users")
		So(err, ShouldBeNil)
		So(members, ShouldResemble, []string{"user:1", "user:2", "user:3"})

		Convey("SScan 扫描全部成员", func() {
			var all []string
			var cursor uint64
			for {
				keys, next, err := store.SScan(ctx, "users", cursor, 100)
				So(err, ShouldBeNil)
				all = append(all, keys...)
				if next == 0 {
					break
				}
				cursor = next
			}
			sort.Strings(all)
			So(all, ShouldResemble, []string{"user:1", "user:2", "user:3"})
		})

		Convey("SRem", func() {
			So(store.SRem(ctx, "users", "user:2"), ShouldBeNil)
			members, err := mr.Members("users")
			So(err, ShouldBeNil)
			So(members, ShouldResemble, []string{"user:1", "user:3"})
		})
	})
}

func TestRedisStoreIndex(t *testing.T) {
	Convey("RedisStore 索引操作", t, func() {
		store, mr := newTestRedisStore(t)
		ctx := context.Background()

		Convey("服务端不支持搜索命令时返回错误", func() {
			So(store.DropIndex(ctx, "user:idx"), ShouldNotBeNil)
			So(store.CreateIndex(ctx, &IndexDefinition{
				Name:   "user:idx",
				Fields: []IndexField{{Field: "age", Type: IndexFieldNumeric}},
			}), ShouldNotBeNil)
			_, err := store.Search(ctx, "user:idx", "*", &SearchOptions{Limit: 10})
			So(err, ShouldNotBeNil)
		})

		Convey("非法的索引定义", func() {
			So(store.CreateIndex(ctx, nil), ShouldNotBeNil)
			So(store.CreateIndex(ctx, &IndexDefinition{Name: "user:idx"}), ShouldNotBeNil)
		})

		Convey("FT.CREATE 参数", func() {
			var got []string
			So(mr.Server().Register("FT.CREATE", func(c *server.Peer, cmd string, args []string) {
				got = args
				c.WriteOK()
			}), ShouldBeNil)

			So(store.CreateIndex(ctx, &IndexDefinition{
				Name:     "user:idx",
				Prefixes: []string{"user:"},
				Fields: []IndexField{
					{Field: "age", Type: IndexFieldNumeric, Sortable: true},
					{Field: "name", Type: IndexFieldText},
				},
			}), ShouldBeNil)
			So(strings.Join(got, " "), ShouldEqual, "user:idx ON HASH PREFIX 1 user: SCHEMA age NUMERIC SORTABLE name TEXT")
		})

		Convey("FT.SEARCH 参数与应答", func() {
			var got []string
			So(mr.Server().Register("FT.SEARCH", func(c *server.Peer, cmd string, args []string) {
				got = args
				c.WriteLen(3)
				c.WriteInt(1)
				c.WriteBulk("user:1")
				c.WriteLen(2)
				c.WriteBulk("age")
				c.WriteBulk("7")
			}), ShouldBeNil)

			reply, err := store.Search(ctx, "user:idx", "@age:[0 10]", &SearchOptions{Offset: 5, Limit: 20, SortBy: "age", SortDesc: true})
			So(err, ShouldBeNil)
			So(strings.Join(got, " "), ShouldEqual, "user:idx @age:[0 10] SORTBY age DESC LIMIT 5 20")
			So(reply, ShouldResemble, []any{int64(1), "user:1", []any{"age", "7"}})
		})
	})
}
