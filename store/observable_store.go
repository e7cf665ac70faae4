package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/hashorm/log"
	"github.com/hatlonely/hashorm/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableStoreOptions struct {
	// Store 被包装的底层存储配置
	Store *ref.TypeOptions `cfg:"store" validate:"required"`

	// Logger 日志记录器配置，为空时使用默认 logger
	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 组件名称标识
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"store"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	batchSize         *prometheus.HistogramVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) *ObservableMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ObservableMetrics{
		operationCounter: registerCollector(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		)),
		operationDuration: registerCollector(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		)),
		activeOperations: registerCollector(registerer, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active store operations",
			},
			[]string{"operation"},
		)),
		batchSize: registerCollector(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_batch_size",
				Help:    "Number of members or documents touched by a store operation",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		)),
	}
}

func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return collector
}

// ObservableStore 装饰器，为任何 Store 添加指标、日志与追踪
type ObservableStore struct {
	store Store

	logger  log.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableStoreWithOptions(options *ObservableStoreOptions) (*ObservableStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	store, err := NewStoreWithOptions(options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying store")
	}

	obs, err := NewObservableStore(store, options, nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return obs, nil
}

// NewObservableStore 包装已有的 store，registerer 为空时注册到默认 registry
func NewObservableStore(store Store, options *ObservableStoreOptions, registerer prometheus.Registerer) (*ObservableStore, error) {
	if options == nil {
		options = &ObservableStoreOptions{EnableMetrics: true, EnableLogging: true}
	}
	name := options.Name
	if name == "" {
		name = "store"
	}

	obs := &ObservableStore{store: store, name: name}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableStore")
	}
	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(name, registerer)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("store.%s", name))
	}

	return obs, nil
}

// observeOperation 统一的操作观测逻辑，size 小于 0 表示不记录批量大小
func (obs *ObservableStore) observeOperation(ctx context.Context, operation string, key string, size int, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
			attribute.String("key", key),
		}
		if size >= 0 {
			attrs = append(attrs, attribute.Int("batch_size", size))
		}
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("store.%s", operation), trace.WithAttributes(attrs...))
		defer span.End()
	}

	if obs.metrics != nil {
		if size >= 0 {
			obs.metrics.batchSize.WithLabelValues(operation).Observe(float64(size))
		}
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "store operation failed",
				"component", obs.name,
				"operation", operation,
				"key", key,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "store operation completed",
				"component", obs.name,
				"operation", operation,
				"key", key,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	return obs.observeOperation(ctx, "hset", key, len(fields), func(ctx context.Context) error {
		return obs.store.HSet(ctx, key, fields)
	})
}

func (obs *ObservableStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var fields map[string]string
	err := obs.observeOperation(ctx, "hgetall", key, -1, func(ctx context.Context) error {
		var err error
		fields, err = obs.store.HGetAll(ctx, key)
		return err
	})
	return fields, err
}

func (obs *ObservableStore) Del(ctx context.Context, key string) error {
	return obs.observeOperation(ctx, "del", key, -1, func(ctx context.Context) error {
		return obs.store.Del(ctx, key)
	})
}

func (obs *ObservableStore) SAdd(ctx context.Context, key string, members ...string) error {
	return obs.observeOperation(ctx, "sadd", key, len(members), func(ctx context.Context) error {
		return obs.store.SAdd(ctx, key, members...)
	})
}

func (obs *ObservableStore) SRem(ctx context.Context, key string, members ...string) error {
	return obs.observeOperation(ctx, "srem", key, len(members), func(ctx context.Context) error {
		return obs.store.SRem(ctx, key, members...)
	})
}

func (obs *ObservableStore) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	var members []string
	var next uint64
	err := obs.observeOperation(ctx, "sscan", key, int(count), func(ctx context.Context) error {
		var err error
		members, next, err = obs.store.SScan(ctx, key, cursor, count)
		return err
	})
	return members, next, err
}

func (obs *ObservableStore) DropIndex(ctx context.Context, index string) error {
	return obs.observeOperation(ctx, "drop_index", index, -1, func(ctx context.Context) error {
		return obs.store.DropIndex(ctx, index)
	})
}

func (obs *ObservableStore) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	name := ""
	size := 0
	if def != nil {
		name = def.Name
		size = len(def.Fields)
	}
	return obs.observeOperation(ctx, "create_index", name, size, func(ctx context.Context) error {
		return obs.store.CreateIndex(ctx, def)
	})
}

func (obs *ObservableStore) Search(ctx context.Context, index string, query string, options *SearchOptions) ([]any, error) {
	var reply []any
	size := -1
	if options != nil {
		size = options.Limit
	}
	err := obs.observeOperation(ctx, "search", index, size, func(ctx context.Context) error {
		var err error
		reply, err = obs.store.Search(ctx, index, query, options)
		return err
	})
	return reply, err
}

func (obs *ObservableStore) Close() error {
	return obs.observeOperation(context.Background(), "close", "", -1, func(ctx context.Context) error {
		return obs.store.Close()
	})
}
