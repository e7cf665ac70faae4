package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetDefaults 为零值字段设置 def tag 指定的默认值
// 只进入已经存在的嵌套结构体，不会为 nil 指针分配对象
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Struct, reflect.Ptr:
			if err := setDefaults(fv); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}

		def, ok := field.Tag.Lookup("def")
		if !ok || !fv.IsZero() || fv.Kind() == reflect.Ptr {
			continue
		}
		if err := setDefaultValue(fv, def); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setDefaultValue(rv reflect.Value, def string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(def)
	case reflect.Bool:
		v, err := strconv.ParseBool(def)
		if err != nil {
			return err
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			d, err := time.ParseDuration(def)
			if err != nil {
				return err
			}
			rv.SetInt(int64(d))
			return nil
		}
		v, err := strconv.ParseInt(def, 0, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(def, 0, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(def, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetFloat(v)
	case reflect.Slice:
		if def == "" {
			return nil
		}
		parts := strings.Split(def, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		rv.Set(slice)
	case reflect.Struct:
		// 结构体的默认值由其字段的 def tag 决定
	default:
		return fmt.Errorf("unsupported default for %v", rv.Type())
	}
	return nil
}
