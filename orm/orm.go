package orm

import (
	"context"

	"github.com/hatlonely/hashorm/log"
	"github.com/hatlonely/hashorm/ref"
	"github.com/hatlonely/hashorm/store"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[ORM](NewORMWithOptions)
}

type Options struct {
	// Store 存储配置，为空时使用进程内的 MapStore
	Store *ref.TypeOptions `cfg:"store"`

	// KeyPrefix 所有 key 的全局前缀
	KeyPrefix string `cfg:"keyPrefix"`

	// Logger 日志配置，为空时使用 log.Default()
	Logger *ref.TypeOptions `cfg:"logger"`
}

// ORM 管理存储连接与 entity 定义
type ORM struct {
	store     store.Store
	keyPrefix string
	logger    log.Logger
}

type ORMOption func(*ORM)

func WithKeyPrefix(prefix string) ORMOption {
	return func(o *ORM) {
		o.keyPrefix = prefix
	}
}

func WithLogger(logger log.Logger) ORMOption {
	return func(o *ORM) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewORMWithOptions(options *Options) (*ORM, error) {
	if options == nil {
		options = &Options{}
	}

	storeOptions := options.Store
	if storeOptions == nil {
		storeOptions = &ref.TypeOptions{Type: "MapStore"}
	}
	s, err := store.NewStoreWithOptions(storeOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "store.NewStoreWithOptions failed")
	}

	logger, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		_ = s.Close()
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}

	return New(s, WithKeyPrefix(options.KeyPrefix), WithLogger(logger)), nil
}

// New 使用调用方已有的 store
func New(s store.Store, opts ...ORMOption) *ORM {
	o := &ORM{
		store:  s,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type IndexField = store.IndexField

// DefineOptions entity 级别的选项
type DefineOptions struct {
	// InitializeSearch 为 true 时删除并重建 entity 的搜索索引
	InitializeSearch bool `cfg:"initializeSearch"`

	// Fields 索引字段，Type 为空时按字段类型推导
	Fields []IndexField `cfg:"fields" validate:"dive"`
}

// Define 编译 schema 并返回 entity 的记录操作句柄
//
// 索引创建失败只记录日志，不影响返回的 Hash
func (o *ORM) Define(ctx context.Context, entity string, schema Schema, options *DefineOptions) (*Hash, error) {
	if entity == "" {
		return nil, &ConfigurationError{Reason: "entity name is empty"}
	}

	fields, err := compileSchema(entity, schema)
	if err != nil {
		return nil, err
	}

	h := &Hash{
		orm:           o,
		name:          entity,
		fields:        fields,
		membershipKey: o.membershipKey(entity),
		indexName:     o.indexName(entity),
		logger:        o.logger.With("entity", entity),
	}

	if options != nil && options.InitializeSearch {
		def, err := h.indexDefinition(options.Fields)
		if err != nil {
			return nil, err
		}
		h.provisionIndex(ctx, def)
	}

	return h, nil
}

func (o *ORM) Store() store.Store {
	return o.store
}

func (o *ORM) Close() error {
	return o.store.Close()
}
