package orm

import (
	"context"
	"fmt"
	"sort"

	"github.com/hatlonely/hashorm/log"
	"github.com/hatlonely/hashorm/query"
	"github.com/hatlonely/hashorm/store"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Record 字段名到值的映射
type Record map[string]any

// Page GetAll 的结果，扫描时设置 Cursor，搜索时设置 Count
type Page struct {
	// Cursor 下一次扫描的起点，0 表示扫描结束
	Cursor uint64

	// Count 搜索命中的总数
	Count int64

	Results []Record
}

// QueryOptions 查询选项
type QueryOptions struct {
	Limit    int
	Offset   int
	SortBy   string
	SortDesc bool
}

type QueryOption func(*QueryOptions)

func WithLimit(limit int) QueryOption {
	return func(o *QueryOptions) {
		o.Limit = limit
	}
}

func WithOffset(offset int) QueryOption {
	return func(o *QueryOptions) {
		o.Offset = offset
	}
}

// WithSortBy 只对搜索生效，字段需要在索引中声明为 sortable
func WithSortBy(field string, desc bool) QueryOption {
	return func(o *QueryOptions) {
		o.SortBy = field
		o.SortDesc = desc
	}
}

func newQueryOptions(opts []QueryOption) *QueryOptions {
	options := &QueryOptions{Limit: 10}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Hash 一个 entity 的记录操作，并发安全
type Hash struct {
	orm           *ORM
	name          string
	fields        map[string]*FieldSpec
	membershipKey string
	indexName     string
	logger        log.Logger
}

func (h *Hash) Name() string {
	return h.name
}

// Schema 返回编译后的字段，修改返回的 map 不影响 Hash
func (h *Hash) Schema() map[string]*FieldSpec {
	fields := make(map[string]*FieldSpec, len(h.fields))
	for name, spec := range h.fields {
		fields[name] = spec
	}
	return fields
}

// Key 返回 id 对应的存储 key
func (h *Hash) Key(id string) string {
	return h.orm.BuildKey(h.name, id)
}

// Set 校验全部字段后一次写入，返回经过 get 还原的记录
func (h *Hash) Set(ctx context.Context, record Record) (Record, error) {
	values := make(Record, len(record)+1)
	for name, value := range record {
		values[name] = value
	}
	if id, ok := values[IDField]; !ok || id == nil || id == "" {
		idSpec := h.fields[IDField]
		generated, err := idSpec.Type().Set(nil, idSpec.Escape())
		if err != nil {
			return nil, &ValidationError{Field: IDField, Err: errors.WithMessage(err, "generate id failed")}
		}
		values[IDField] = generated
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	wires := make(map[string]string, len(values))
	for _, name := range names {
		spec, ok := h.fields[name]
		if !ok {
			return nil, newUnknownFieldError(name)
		}
		value := values[name]
		if !spec.Validate(value) {
			return nil, &ValidationError{Field: name, Expected: spec.Type().Name(), Actual: fmt.Sprintf("%T", value)}
		}
		wire, err := spec.Set(value)
		if err != nil {
			return nil, &ValidationError{Field: name, Err: err}
		}
		wires[name] = wire
	}

	result, err := h.decode(wires)
	if err != nil {
		return nil, err
	}

	key := h.Key(wires[IDField])
	if err := h.orm.store.HSet(ctx, key, wires); err != nil {
		return nil, errors.WithMessagef(err, "write %s failed", key)
	}
	if err := h.orm.store.SAdd(ctx, h.membershipKey, key); err != nil {
		return nil, errors.WithMessagef(err, "add %s to %s failed", key, h.membershipKey)
	}

	return result, nil
}

// Get 读取记录，key 下没有字段时返回 ErrRecordNotFound
func (h *Hash) Get(ctx context.Context, id string) (Record, error) {
	key := h.Key(id)
	wires, err := h.orm.store.HGetAll(ctx, key)
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s failed", key)
	}
	if len(wires) == 0 {
		return nil, errors.WithMessage(ErrRecordNotFound, key)
	}
	return h.decode(wires)
}

// Del 删除记录并从成员集合中移除
func (h *Hash) Del(ctx context.Context, id string) error {
	key := h.Key(id)
	if err := h.orm.store.Del(ctx, key); err != nil {
		return errors.WithMessagef(err, "delete %s failed", key)
	}
	if err := h.orm.store.SRem(ctx, h.membershipKey, key); err != nil {
		return errors.WithMessagef(err, "remove %s from %s failed", key, h.membershipKey)
	}
	return nil
}

// GetAll filter 为空时扫描成员集合，否则走搜索索引
func (h *Hash) GetAll(ctx context.Context, filter string, opts ...QueryOption) (*Page, error) {
	if filter == "" {
		options := newQueryOptions(opts)
		if options.Offset < 0 {
			return nil, errors.Errorf("invalid offset %d", options.Offset)
		}
		return h.Scan(ctx, uint64(options.Offset), int64(options.Limit))
	}
	return h.Search(ctx, filter, opts...)
}

// Scan 从 cursor 开始扫描约 count 个 key，并发读取后按扫描顺序返回
//
// 成员集合中已没有字段的 key 会被跳过
func (h *Hash) Scan(ctx context.Context, cursor uint64, count int64) (*Page, error) {
	keys, next, err := h.orm.store.SScan(ctx, h.membershipKey, cursor, count)
	if err != nil {
		return nil, errors.WithMessagef(err, "scan %s failed", h.membershipKey)
	}

	wires := make([]map[string]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			fields, err := h.orm.store.HGetAll(gctx, key)
			if err != nil {
				return errors.WithMessagef(err, "read %s failed", key)
			}
			wires[i] = fields
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &Page{Cursor: next, Results: make([]Record, 0, len(keys))}
	for i, fields := range wires {
		if len(fields) == 0 {
			h.logger.DebugContext(ctx, "skip stale member", "key", keys[i])
			continue
		}
		record, err := h.decode(fields)
		if err != nil {
			return nil, errors.WithMessagef(err, "decode %s failed", keys[i])
		}
		page.Results = append(page.Results, record)
	}
	return page, nil
}

// Search 在 entity 的索引上执行查询，每条结果附带文档 key
func (h *Hash) Search(ctx context.Context, q string, opts ...QueryOption) (*Page, error) {
	options := newQueryOptions(opts)
	raw, err := h.orm.store.Search(ctx, h.indexName, q, &store.SearchOptions{
		Offset:   options.Offset,
		Limit:    options.Limit,
		SortBy:   options.SortBy,
		SortDesc: options.SortDesc,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "search %s failed", h.indexName)
	}

	reply, err := ParseSearchReply(raw)
	if err != nil {
		return nil, err
	}

	page := &Page{Count: reply.Count, Results: make([]Record, 0, len(reply.Documents))}
	for _, doc := range reply.Documents {
		record := make(Record, len(doc.Fields)+1)
		for _, field := range doc.Fields {
			if record[field.Name], err = h.decodeField(field.Name, field.Value); err != nil {
				return nil, errors.WithMessagef(err, "decode %s failed", doc.Key)
			}
		}
		record[KeyField] = doc.Key
		page.Results = append(page.Results, record)
	}
	return page, nil
}

// Find 与 Search 相同，查询由 query 包构造
func (h *Hash) Find(ctx context.Context, q query.Query, opts ...QueryOption) (*Page, error) {
	if q == nil {
		return h.Search(ctx, query.All, opts...)
	}
	return h.Search(ctx, q.String(), opts...)
}

func (h *Hash) decode(wires map[string]string) (Record, error) {
	record := make(Record, len(wires))
	for name, wire := range wires {
		value, err := h.decodeField(name, wire)
		if err != nil {
			return nil, err
		}
		record[name] = value
	}
	return record, nil
}

// decodeField 不在 schema 中的字段原样返回字符串
func (h *Hash) decodeField(name string, wire string) (any, error) {
	spec, ok := h.fields[name]
	if !ok {
		return wire, nil
	}
	value, err := spec.Get(wire)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode field %s failed", name)
	}
	return value, nil
}
