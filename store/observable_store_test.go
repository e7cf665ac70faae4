package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/hatlonely/hashorm/log/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewObservableStoreWithOptions(t *testing.T) {
	Convey("NewObservableStoreWithOptions", t, func() {
		Convey("包装 MapStore", func() {
			store, err := NewObservableStoreWithOptions(&ObservableStoreOptions{
				Store:         refOptions("MapStore", nil),
				Name:          "test_observable_store",
				EnableMetrics: true,
				EnableLogging: true,
			})
			So(err, ShouldBeNil)
			So(store, ShouldNotBeNil)
			So(store.Close(), ShouldBeNil)
		})

		Convey("通过 ref 嵌套创建", func() {
			store, err := NewStoreWithOptions(refOptions("ObservableStore", &ObservableStoreOptions{
				Store: refOptions("MapStore", nil),
				Name:  "test_nested_store",
			}))
			So(err, ShouldBeNil)
			So(store, ShouldHaveSameTypeAs, &ObservableStore{})
		})

		Convey("options 为 nil", func() {
			_, err := NewObservableStoreWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("底层 store 创建失败", func() {
			_, err := NewObservableStoreWithOptions(&ObservableStoreOptions{
				Store: refOptions("Unknown", nil),
			})
			So(err, ShouldNotBeNil)
		})

		Convey("同名指标重复创建", func() {
			for i := 0; i < 2; i++ {
				store, err := NewObservableStoreWithOptions(&ObservableStoreOptions{
					Store:         refOptions("MapStore", nil),
					Name:          "test_duplicate_store",
					EnableMetrics: true,
				})
				So(err, ShouldBeNil)
				So(store, ShouldNotBeNil)
			}
		})
	})
}

func TestObservableStore(t *testing.T) {
	Convey("ObservableStore", t, func() {
		registry := prometheus.NewRegistry()
		var buf bytes.Buffer
		obs, err := NewObservableStore(NewMapStoreWithOptions(), &ObservableStoreOptions{
			Name:          "orm_store",
			EnableMetrics: true,
			EnableTracing: true,
		}, registry)
		So(err, ShouldBeNil)
		l, err := logger.NewSLogWithWriter(&buf, "debug")
		So(err, ShouldBeNil)
		obs.logger = l
		ctx := context.Background()

		Convey("透传并记录指标", func() {
			So(obs.HSet(ctx, "user:1", map[string]string{"id": "1"}), ShouldBeNil)
			So(obs.SAdd(ctx, "users", "user:1"), ShouldBeNil)

			fields, err := obs.HGetAll(ctx, "user:1")
			So(err, ShouldBeNil)
			So(fields, ShouldResemble, map[string]string{"id": "1"})

			keys, next, err := obs.SScan(ctx, "users", 0, 10)
			So(err, ShouldBeNil)
			So(keys, ShouldResemble, []string{"user:1"})
			So(next, ShouldEqual, 0)

			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("hset", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("hgetall", "success")), ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "operation=hset")
			So(buf.String(), ShouldContainSubstring, "key=user:1")
		})

		Convey("错误计数与日志", func() {
			So(obs.DropIndex(ctx, "user:idx"), ShouldNotBeNil)
			_, err := obs.Search(ctx, "user:idx", "*", &SearchOptions{Limit: 10})
			So(err, ShouldNotBeNil)

			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("drop_index", "error")), ShouldEqual, 1)
			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("search", "error")), ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "store operation failed")
		})

		Convey("索引与搜索", func() {
			So(obs.CreateIndex(ctx, &IndexDefinition{
				Name:     "user:idx",
				Prefixes: []string{"user:"},
				Fields:   []IndexField{{Field: "id", Type: IndexFieldTag}},
			}), ShouldBeNil)
			So(obs.HSet(ctx, "user:1", map[string]string{"id": "1"}), ShouldBeNil)

			reply, err := obs.Search(ctx, "user:idx", "*", &SearchOptions{Limit: 10})
			So(err, ShouldBeNil)
			So(reply, ShouldResemble, []any{int64(1), "user:1", []any{"id", "1"}})

			So(obs.Del(ctx, "user:1"), ShouldBeNil)
			So(obs.SRem(ctx, "users", "user:1"), ShouldBeNil)
			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("create_index", "success")), ShouldEqual, 1)
		})
	})
}
