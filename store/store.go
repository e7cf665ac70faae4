package store

import (
	"context"

	"github.com/hatlonely/hashorm/ref"
	"github.com/pkg/errors"
)

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
)

// IndexFieldType 索引字段在搜索引擎中的类型
type IndexFieldType string

const (
	IndexFieldText    IndexFieldType = "TEXT"
	IndexFieldNumeric IndexFieldType = "NUMERIC"
	IndexFieldTag     IndexFieldType = "TAG"
	IndexFieldGeo     IndexFieldType = "GEO"
)

// IndexField 索引中的一个字段
type IndexField struct {
	Field    string         `cfg:"field" validate:"required"`
	Type     IndexFieldType `cfg:"type" validate:"omitempty,oneof=TEXT NUMERIC TAG GEO"`
	Sortable bool           `cfg:"sortable"`
}

// IndexDefinition 基于 key 前缀过滤文档的 hash 索引
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// SearchOptions 搜索的分页与排序
type SearchOptions struct {
	Offset   int
	Limit    int
	SortBy   string
	SortDesc bool
}

// Store hash/set/索引 命令集合
type Store interface {
	// HSet 在一次写入中设置 key 的全部字段
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGetAll 获取 key 的全部字段，key 不存在时返回空 map
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// Del 删除 key，key 不存在时也返回成功
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	// SScan 从 cursor 开始扫描集合，返回的 cursor 为 0 表示扫描结束
	SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error)
	// DropIndex 删除索引，索引不存在时返回错误
	DropIndex(ctx context.Context, index string) error
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// Search 返回搜索引擎的原始应答 [count, key1, [field, value, ...], key2, ...]
	Search(ctx context.Context, index string, query string, options *SearchOptions) ([]any, error)
	Close() error
}

func init() {
	ref.MustRegisterT[RedisStore](NewRedisStoreWithOptions)
	ref.MustRegisterT[MapStore](NewMapStoreWithOptions)
	ref.MustRegisterT[ObservableStore](NewObservableStoreWithOptions)
	ref.MustRegisterT[CachedStore](NewCachedStoreWithOptions)
}

// NewStoreWithOptions 按 TypeOptions 创建 Store，namespace 默认为本包
func NewStoreWithOptions(options *ref.TypeOptions) (Store, error) {
	if options == nil {
		return nil, errors.New("store options is nil")
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/hashorm/store"
	}

	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	store, ok := obj.(Store)
	if !ok {
		return nil, errors.Errorf("%T is not a Store", obj)
	}
	return store, nil
}
