package cfg

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/hashorm/ref"
	"github.com/pkg/errors"
)

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
	typeOptionsType = reflect.TypeOf(ref.TypeOptions{})
)

func indirectValue(object any) reflect.Value {
	v := reflect.ValueOf(object)
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func convert(src any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return convertValue(src, rv.Elem(), "")
}

func convertValue(src any, dst reflect.Value, path string) error {
	if src == nil {
		return nil
	}

	if dst.Type() == typeOptionsType {
		return convertTypeOptions(src, dst, path)
	}

	switch dst.Kind() {
	case reflect.Interface:
		v := reflect.ValueOf(src)
		if !v.Type().AssignableTo(dst.Type()) {
			return errors.Errorf("%s: %T is not assignable to %v", path, src, dst.Type())
		}
		dst.Set(v)
		return nil
	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem(), path)
	case reflect.Struct:
		if dst.Type() == timeType {
			return convertTime(src, dst, path)
		}
		return convertStruct(src, dst, path)
	case reflect.Map:
		return convertMap(src, dst, path)
	case reflect.Slice:
		return convertSlice(src, dst, path)
	case reflect.String:
		dst.SetString(toString(src))
		return nil
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return errors.WithMessage(err, path)
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if dst.Type() == durationType {
			d, err := toDuration(src)
			if err != nil {
				return errors.WithMessage(err, path)
			}
			dst.SetInt(int64(d))
			return nil
		}
		i, err := toInt64(src)
		if err != nil {
			return errors.WithMessage(err, path)
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := toInt64(src)
		if err != nil {
			return errors.WithMessage(err, path)
		}
		if i < 0 {
			return errors.Errorf("%s: negative value %d for unsigned field", path, i)
		}
		dst.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(src)
		if err != nil {
			return errors.WithMessage(err, path)
		}
		dst.SetFloat(f)
		return nil
	default:
		return errors.Errorf("%s: unsupported kind %v", path, dst.Kind())
	}
}

// TypeOptions 的 Options 保留为 *Storage，等构造函数确定参数类型后再转换
func convertTypeOptions(src any, dst reflect.Value, path string) error {
	m, ok := src.(map[string]any)
	if !ok {
		return errors.Errorf("%s: expected object, got %T", path, src)
	}
	options := ref.TypeOptions{
		Namespace: toString(m["namespace"]),
		Type:      toString(m["type"]),
	}
	if raw, ok := m["options"]; ok && raw != nil {
		options.Options = NewStorage(raw)
	}
	dst.Set(reflect.ValueOf(options))
	return nil
}

func convertStruct(src any, dst reflect.Value, path string) error {
	m, ok := src.(map[string]any)
	if !ok {
		return errors.Errorf("%s: expected object, got %T", path, src)
	}

	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Tag.Get("cfg") == "" {
			if err := convertValue(src, dst.Field(i), path); err != nil {
				return err
			}
			continue
		}

		name := fieldName(field)
		if name == "-" {
			continue
		}
		value, ok := lookup(m, name)
		if !ok {
			continue
		}
		if err := convertValue(value, dst.Field(i), join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("cfg")
	if tag == "" {
		return field.Name
	}
	return strings.Split(tag, ",")[0]
}

// 优先精确匹配，其次忽略大小写
func lookup(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func convertMap(src any, dst reflect.Value, path string) error {
	m, ok := src.(map[string]any)
	if !ok {
		return errors.Errorf("%s: expected object, got %T", path, src)
	}
	if dst.Type().Key().Kind() != reflect.String {
		return errors.Errorf("%s: map key must be string", path)
	}

	out := reflect.MakeMapWithSize(dst.Type(), len(m))
	for k, v := range m {
		elem := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(v, elem, join(path, k)); err != nil {
			return err
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), elem)
	}
	dst.Set(out)
	return nil
}

func convertSlice(src any, dst reflect.Value, path string) error {
	var items []any
	switch v := src.(type) {
	case []any:
		items = v
	case string:
		// ini 与环境变量中的列表以逗号分隔
		for _, part := range strings.Split(v, ",") {
			items = append(items, strings.TrimSpace(part))
		}
	default:
		return errors.Errorf("%s: expected array, got %T", path, src)
	}

	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := convertValue(item, out.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

func convertTime(src any, dst reflect.Value, path string) error {
	switch v := src.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(v))
		return nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return errors.Wrap(err, path)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	default:
		return errors.Errorf("%s: cannot convert %T to time", path, src)
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	default:
		return false, errors.Errorf("cannot convert %T to bool", v)
	}
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float64:
		if val != float64(int64(val)) {
			return 0, errors.Errorf("%v is not an integer", val)
		}
		return int64(val), nil
	case json.Number:
		return val.Int64()
	case string:
		return strconv.ParseInt(val, 0, 64)
	default:
		return 0, errors.Errorf("cannot convert %T to int", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, errors.Errorf("cannot convert %T to float", v)
	}
}

func toDuration(v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, errors.Errorf("cannot convert %v to duration", v)
	}
	return time.Duration(i), nil
}
