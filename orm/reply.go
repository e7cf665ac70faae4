package orm

import (
	"strconv"

	"github.com/pkg/errors"
)

// SearchReply 搜索应答 [count, key1, [f1, v1, ...], key2, [...], ...] 的结构化表示
type SearchReply struct {
	Count     int64
	Documents []Document
}

type Document struct {
	Key    string
	Fields []FieldValue
}

type FieldValue struct {
	Name  string
	Value string
}

// ParseSearchReply 按顺序把应答解析成 (key, 字段列表) 对
func ParseSearchReply(raw any) (*SearchReply, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.Errorf("search reply must be an array, got %T", raw)
	}
	if len(items) == 0 {
		return nil, errors.New("search reply is empty")
	}

	count, err := toInt64(items[0])
	if err != nil {
		return nil, errors.WithMessage(err, "invalid total count")
	}

	rest := items[1:]
	if len(rest)%2 != 0 {
		return nil, errors.Errorf("search reply has %d elements after the count, want (key, fields) pairs", len(rest))
	}

	reply := &SearchReply{Count: count, Documents: make([]Document, 0, len(rest)/2)}
	for i := 0; i < len(rest); i += 2 {
		key, err := toString(rest[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid document key at %d", i+1)
		}
		fields, err := parseFieldList(rest[i+1])
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid fields of document %s", key)
		}
		reply.Documents = append(reply.Documents, Document{Key: key, Fields: fields})
	}
	return reply, nil
}

func parseFieldList(raw any) ([]FieldValue, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.Errorf("field list must be an array, got %T", raw)
	}
	if len(items)%2 != 0 {
		return nil, errors.Errorf("field list has odd length %d", len(items))
	}

	fields := make([]FieldValue, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		name, err := toString(items[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid field name at %d", i)
		}
		var value string
		if items[i+1] != nil {
			if value, err = toString(items[i+1]); err != nil {
				return nil, errors.WithMessagef(err, "invalid value of field %s", name)
			}
		}
		fields = append(fields, FieldValue{Name: name, Value: value})
	}
	return fields, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, errors.Wrapf(err, "parse %q failed", n)
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, errors.Wrapf(err, "parse %q failed", n)
	}
	return 0, errors.Errorf("expected integer, got %T", v)
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", errors.Errorf("expected string, got %T", v)
}
