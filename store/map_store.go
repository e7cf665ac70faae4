package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MapStore 进程内的 Store 实现，支持一个精简的搜索查询子集，用于测试与单机场景
type MapStore struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	indexes map[string]*IndexDefinition
}

func NewMapStoreWithOptions() *MapStore {
	return &MapStore{
		hashes:  map[string]map[string]string{},
		sets:    map[string]map[string]struct{}{},
		indexes: map[string]*IndexDefinition{},
	}
}

func (s *MapStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string, len(fields))
		s.hashes[key] = hash
	}
	for name, value := range fields {
		hash[name] = value
	}
	return nil
}

func (s *MapStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := make(map[string]string, len(s.hashes[key]))
	for name, value := range s.hashes[key] {
		fields[name] = value
	}
	return fields, nil
}

func (s *MapStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hashes, key)
	delete(s.sets, key)
	return nil
}

func (s *MapStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (s *MapStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.sets[key]
	for _, member := range members {
		delete(set, member)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

// SScan 按成员字典序分页，cursor 是下一页起始下标
func (s *MapStore) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	if count <= 0 {
		count = 10
	}

	s.mu.RLock()
	members := make([]string, 0, len(s.sets[key]))
	for member := range s.sets[key] {
		members = append(members, member)
	}
	s.mu.RUnlock()
	sort.Strings(members)

	if cursor >= uint64(len(members)) {
		return []string{}, 0, nil
	}
	end := cursor + uint64(count)
	if end >= uint64(len(members)) {
		return members[cursor:], 0, nil
	}
	return members[cursor:end], end, nil
}

func (s *MapStore) DropIndex(ctx context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[index]; !ok {
		return errors.Wrap(ErrIndexNotFound, index)
	}
	delete(s.indexes, index)
	return nil
}

func (s *MapStore) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	if def == nil || def.Name == "" {
		return errors.New("index definition requires a name")
	}
	if len(def.Fields) == 0 {
		return errors.Errorf("index %s has no fields", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return errors.Wrap(ErrIndexExists, def.Name)
	}
	clone := &IndexDefinition{
		Name:     def.Name,
		Prefixes: append([]string(nil), def.Prefixes...),
		Fields:   append([]IndexField(nil), def.Fields...),
	}
	for i := range clone.Fields {
		if clone.Fields[i].Type == "" {
			clone.Fields[i].Type = IndexFieldText
		}
	}
	s.indexes[def.Name] = clone
	return nil
}

type mapDocument struct {
	key    string
	fields map[string]string
}

func (s *MapStore) Search(ctx context.Context, index string, query string, options *SearchOptions) ([]any, error) {
	if options == nil {
		options = &SearchOptions{Limit: 10}
	}
	if options.Offset < 0 || options.Limit < 0 {
		return nil, errors.Errorf("invalid LIMIT %d %d", options.Offset, options.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[index]
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, index)
	}

	matcher, err := parseQuery(query, def)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse query [%s] failed", query)
	}

	var sortField *IndexField
	if options.SortBy != "" {
		for i := range def.Fields {
			if def.Fields[i].Field == options.SortBy {
				sortField = &def.Fields[i]
				break
			}
		}
		if sortField == nil {
			return nil, errors.Errorf("property %s not loaded nor in schema", options.SortBy)
		}
	}

	var docs []mapDocument
	for key, fields := range s.hashes {
		if !hasAnyPrefix(key, def.Prefixes) || !matcher.match(fields) {
			continue
		}
		docs = append(docs, mapDocument{key: key, fields: fields})
	}

	sort.Slice(docs, func(i, j int) bool {
		if sortField != nil {
			if c := compareField(sortField.Type, docs[i].fields[sortField.Field], docs[j].fields[sortField.Field]); c != 0 {
				if options.SortDesc {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].key < docs[j].key
	})

	reply := []any{int64(len(docs))}
	for i := options.Offset; i < len(docs) && i < options.Offset+options.Limit; i++ {
		names := make([]string, 0, len(docs[i].fields))
		for name := range docs[i].fields {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]any, 0, len(names)*2)
		for _, name := range names {
			pairs = append(pairs, name, docs[i].fields[name])
		}
		reply = append(reply, docs[i].key, pairs)
	}
	return reply, nil
}

func (s *MapStore) Close() error {
	return nil
}

func hasAnyPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// compareField 数值字段按数值比较，缺失或非法的值排在最前
func compareField(typ IndexFieldType, a, b string) int {
	if typ == IndexFieldNumeric {
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return -1
		case errB != nil:
			return 1
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
