// Package cfg 把 yaml/json/toml/ini 配置文件加载到带 cfg/def/validate 标签的 Options 结构，
// 例如 orm.Options，嵌套的 ref.TypeOptions 在构造时才转换成具体类型
package cfg

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Storage 解码后的配置树，实现了 ref.Convertable
type Storage struct {
	data any
}

func NewStorage(data any) *Storage {
	return &Storage{data: data}
}

func (s *Storage) Data() any {
	return s.data
}

// Sub 按 "a.b.c" 路径获取子配置，路径不存在时返回空配置
func (s *Storage) Sub(key string) *Storage {
	if key == "" {
		return s
	}
	current := s.data
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return &Storage{}
		}
		current = m[part]
	}
	return &Storage{data: current}
}

// ConvertTo 将配置转换到 object，并补齐 def 默认值、执行 validate 校验
func (s *Storage) ConvertTo(object any) error {
	if err := convert(s.data, object); err != nil {
		return err
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "SetDefaults failed")
	}
	return Validate(object)
}

var validate = validator.New()

// Validate 校验结构体的 validate tag，非结构体直接通过
func Validate(object any) error {
	v := indirectValue(object)
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v.Interface()); err != nil {
		return errors.WithMessage(err, "validate failed")
	}
	return nil
}

// Decode 按格式解码配置数据，支持 yaml, json, toml, ini
func Decode(data []byte, format string) (*Storage, error) {
	var out any
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, errors.Wrap(err, "json.Decode failed")
		}
	case "toml":
		m := map[string]any{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(err, "toml.Unmarshal failed")
		}
		out = m
	case "ini":
		m, err := decodeIni(data)
		if err != nil {
			return nil, err
		}
		out = m
	default:
		return nil, errors.Errorf("unsupported config format: %q", format)
	}
	return &Storage{data: normalize(out)}, nil
}

// ini 的 section 映射为一级 key，"a.b" 形式的 section 映射为嵌套 key
func decodeIni(data []byte) (map[string]any, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}

	root := map[string]any{}
	for _, section := range file.Sections() {
		target := root
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, k := range section.Keys() {
			target[k.Name()] = k.Value()
		}
	}
	return root, nil
}

// Load 读取配置文件并转换到 object，格式由扩展名决定
func Load(filename string, object any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "read config file %s failed", filename)
	}
	storage, err := Decode(data, strings.TrimPrefix(filepath.Ext(filename), "."))
	if err != nil {
		return errors.WithMessagef(err, "decode config file %s failed", filename)
	}
	return storage.ConvertTo(object)
}

// normalize 将各解码器产生的 map[any]any / map[string]interface{} 统一为 map[string]any
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[toString(k)] = normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
