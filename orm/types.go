package orm

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/hashorm/uid"
	"github.com/pkg/errors"
)

// Kind 字段在索引中声明时使用的类型
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindBoolean Kind = "boolean"
)

// FieldType 字段类型，由 set/get/validate 三个无状态函数组成，初始化后只读
type FieldType struct {
	name     string
	kind     Kind
	set      func(value any, escape bool) (string, error)
	get      func(wire string, escape bool) (any, error)
	validate func(value any, values []string) bool
}

func (t *FieldType) Name() string {
	return t.name
}

func (t *FieldType) Kind() Kind {
	return t.kind
}

// Set 把值序列化成存储中的字符串
func (t *FieldType) Set(value any, escape bool) (string, error) {
	return t.set(value, escape)
}

// Get 把存储中的字符串还原成值，空字符串对数值、JSON、时间类型返回 nil
func (t *FieldType) Get(wire string, escape bool) (any, error) {
	return t.get(wire, escape)
}

// Validate 检查值的类型，values 只对 Enum 有意义
func (t *FieldType) Validate(value any, values []string) bool {
	return t.validate(value, values)
}

func (t *FieldType) String() string {
	return t.name
}

var (
	nanoIDGenerator uid.StrGenerator
	uuidGenerator   uid.StrGenerator = uid.NewUUIDGeneratorWithOptions(nil)
)

func init() {
	g, err := uid.NewNanoIDGeneratorWithOptions(nil)
	if err != nil {
		panic(err)
	}
	nanoIDGenerator = g
}

var (
	// NanoID 21 位 URL 安全随机 ID，未提供时自动生成
	NanoID = &FieldType{
		name:     "nanoid",
		kind:     KindString,
		set:      identifierSet(func() string { return nanoIDGenerator.Generate() }),
		get:      identityGet,
		validate: isNanoID,
	}

	// UUID 带连字符的 UUID，未提供时自动生成 v4
	UUID = &FieldType{
		name:     "uuid",
		kind:     KindString,
		set:      identifierSet(func() string { return uuidGenerator.Generate() }),
		get:      identityGet,
		validate: isString,
	}

	Integer = &FieldType{
		name:     "integer",
		kind:     KindInteger,
		set:      integerSet,
		get:      integerGet,
		validate: isInteger,
	}

	Float = &FieldType{
		name:     "float",
		kind:     KindFloat,
		set:      floatSet,
		get:      floatGet,
		validate: isFloat,
	}

	String = &FieldType{
		name: "string",
		kind: KindString,
		set: func(value any, escape bool) (string, error) {
			s, ok := value.(string)
			if !ok {
				return "", errors.Errorf("expected string, got %T", value)
			}
			if escape {
				return Escape(s), nil
			}
			return s, nil
		},
		get: func(wire string, escape bool) (any, error) {
			if escape {
				return Unescape(wire), nil
			}
			return wire, nil
		},
		validate: isString,
	}

	// Array 逗号拼接的字符串数组，元素中的逗号不做转义
	Array = &FieldType{
		name: "array",
		kind: KindString,
		set: func(value any, _ bool) (string, error) {
			values, ok := value.([]string)
			if !ok {
				return "", errors.Errorf("expected []string, got %T", value)
			}
			return strings.Join(values, ","), nil
		},
		get: func(wire string, _ bool) (any, error) {
			if wire == "" {
				return []string{}, nil
			}
			return strings.Split(wire, ","), nil
		},
		validate: func(value any, _ []string) bool {
			_, ok := value.([]string)
			return ok
		},
	}

	// Boolean 存储为 1/0
	Boolean = &FieldType{
		name: "boolean",
		kind: KindBoolean,
		set: func(value any, _ bool) (string, error) {
			b, ok := value.(bool)
			if !ok {
				return "", errors.Errorf("expected bool, got %T", value)
			}
			if b {
				return "1", nil
			}
			return "0", nil
		},
		get: func(wire string, _ bool) (any, error) {
			return wire == "1" || wire == "true", nil
		},
		validate: func(value any, _ []string) bool {
			_, ok := value.(bool)
			return ok
		},
	}

	// JSON 任意可 json 序列化的对象，读取时还原成 map[string]any/[]any 等通用结构
	JSON = &FieldType{
		name: "json",
		kind: KindString,
		set: func(value any, _ bool) (string, error) {
			if isNil(value) {
				return "", nil
			}
			buf, err := json.Marshal(value)
			if err != nil {
				return "", errors.Wrap(err, "json.Marshal failed")
			}
			return string(buf), nil
		},
		get: func(wire string, _ bool) (any, error) {
			if wire == "" {
				return nil, nil
			}
			var value any
			if err := json.Unmarshal([]byte(wire), &value); err != nil {
				return nil, errors.Wrap(err, "json.Unmarshal failed")
			}
			return value, nil
		},
		validate: isObject,
	}

	// Timestamp 存储为毫秒时间戳，读取时返回 UTC 时间
	Timestamp = &FieldType{
		name: "timestamp",
		kind: KindString,
		set: func(value any, _ bool) (string, error) {
			if value == nil {
				return "", nil
			}
			t, ok := value.(time.Time)
			if !ok {
				return "", errors.Errorf("expected time.Time, got %T", value)
			}
			return strconv.FormatInt(t.UnixMilli(), 10), nil
		},
		get: func(wire string, _ bool) (any, error) {
			if wire == "" {
				return nil, nil
			}
			ms, err := strconv.ParseInt(wire, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid timestamp %q", wire)
			}
			return time.UnixMilli(ms).UTC(), nil
		},
		validate: func(value any, _ []string) bool {
			_, ok := value.(time.Time)
			return ok
		},
	}

	// Enum 取值限定在 values 中的字符串
	Enum = &FieldType{
		name: "enum",
		kind: KindString,
		set: func(value any, _ bool) (string, error) {
			s, ok := value.(string)
			if !ok {
				return "", errors.Errorf("expected string, got %T", value)
			}
			return s, nil
		},
		get: identityGet,
		validate: func(value any, values []string) bool {
			s, ok := value.(string)
			if !ok {
				return false
			}
			for _, v := range values {
				if v == s {
					return true
				}
			}
			return false
		},
	}
)

// Types 内置类型，按名称索引
var Types = map[string]*FieldType{
	NanoID.name:    NanoID,
	UUID.name:      UUID,
	Integer.name:   Integer,
	Float.name:     Float,
	String.name:    String,
	Array.name:     Array,
	Boolean.name:   Boolean,
	JSON.name:      JSON,
	Timestamp.name: Timestamp,
	Enum.name:      Enum,
}

func identifierSet(generate func() string) func(any, bool) (string, error) {
	return func(value any, _ bool) (string, error) {
		if value == nil {
			return generate(), nil
		}
		s, ok := value.(string)
		if !ok {
			return "", errors.Errorf("expected string, got %T", value)
		}
		if s == "" {
			return generate(), nil
		}
		return s, nil
	}
}

func identityGet(wire string, _ bool) (any, error) {
	return wire, nil
}

func isNanoID(value any, _ []string) bool {
	s, ok := value.(string)
	return ok && len(s) == uid.DefaultNanoIDSize
}

func isString(value any, _ []string) bool {
	_, ok := value.(string)
	return ok
}

// isInteger 无符号值不能超过 int64 的范围，否则读回时无法还原
func isInteger(value any, _ []string) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return true
	case uint:
		return uint64(v) <= math.MaxInt64
	case uint64:
		return v <= math.MaxInt64
	}
	return false
}

func integerSet(value any, _ bool) (string, error) {
	switch v := value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return uintSet(uint64(v))
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return uintSet(v)
	}
	return "", errors.Errorf("expected integer, got %T", value)
}

func uintSet(v uint64) (string, error) {
	if v > math.MaxInt64 {
		return "", errors.Errorf("integer %d overflows int64", v)
	}
	return strconv.FormatUint(v, 10), nil
}

// integerGet 兼容以小数形式写入的整数，截断小数部分
func integerGet(wire string, _ bool) (any, error) {
	if wire == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(wire, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(wire, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Errorf("invalid integer %q", wire)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errors.Errorf("integer %q overflows int64", wire)
	}
	return int64(f), nil
}

func isFloat(value any, _ []string) bool {
	switch value.(type) {
	case float32, float64:
		return true
	}
	return false
}

func floatSet(value any, _ bool) (string, error) {
	switch v := value.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", errors.Errorf("expected float, got %T", value)
}

func floatGet(wire string, _ bool) (any, error) {
	if wire == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(wire, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid float %q", wire)
	}
	return v, nil
}

func isObject(value any, _ []string) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Ptr:
		if rv.IsNil() {
			return true
		}
		switch rv.Elem().Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			return true
		}
	}
	return false
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
