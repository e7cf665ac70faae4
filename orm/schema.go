package orm

import (
	"sort"

	"github.com/pkg/errors"
)

// Schema 字段名到字段声明的映射，声明可以是 *FieldType 或 Field
type Schema map[string]any

// Field 带覆盖项的字段声明
type Field struct {
	Type *FieldType

	// Escape 写入前转义保留字符，读取时还原
	Escape bool

	// Set 接收基础类型序列化后的字符串
	Set func(wire string) string

	// Get 接收基础类型反序列化后的值
	Get func(value any) any

	// Values Enum 允许的取值
	Values []string
}

// FieldSpec 编译后的字段行为，Define 之后不再修改
type FieldSpec struct {
	name   string
	typ    *FieldType
	escape bool
	values []string
	set    func(value any) (string, error)
	get    func(wire string) (any, error)
}

func (f *FieldSpec) Name() string {
	return f.name
}

func (f *FieldSpec) Type() *FieldType {
	return f.typ
}

func (f *FieldSpec) Escape() bool {
	return f.escape
}

func (f *FieldSpec) Values() []string {
	return append([]string(nil), f.values...)
}

func (f *FieldSpec) Set(value any) (string, error) {
	return f.set(value)
}

func (f *FieldSpec) Get(wire string) (any, error) {
	return f.get(wire)
}

func (f *FieldSpec) Validate(value any) bool {
	return f.typ.Validate(value, f.values)
}

func compileSchema(entity string, schema Schema) (map[string]*FieldSpec, error) {
	if len(schema) == 0 {
		return nil, &ConfigurationError{Entity: entity, Reason: "schema is empty"}
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make(map[string]*FieldSpec, len(schema))
	for _, name := range names {
		if name == "" {
			return nil, &ConfigurationError{Entity: entity, Reason: "field name is empty"}
		}
		if name == KeyField {
			return nil, &ConfigurationError{Entity: entity, Field: name, Reason: "field name is reserved for search results"}
		}
		spec, err := compileField(name, schema[name])
		if err != nil {
			return nil, &ConfigurationError{Entity: entity, Field: name, Reason: err.Error()}
		}
		specs[name] = spec
	}

	if _, ok := specs[IDField]; !ok {
		return nil, &ConfigurationError{Entity: entity, Field: IDField, Reason: "schema must declare an id field"}
	}
	return specs, nil
}

func compileField(name string, declaration any) (*FieldSpec, error) {
	switch d := declaration.(type) {
	case *FieldType:
		if d == nil {
			return nil, errors.New("field type is nil")
		}
		return baseSpec(name, d, false), nil
	case Field:
		return compileOverride(name, &d)
	case *Field:
		if d == nil {
			return nil, errors.New("field declaration is nil")
		}
		return compileOverride(name, d)
	}
	return nil, errors.Errorf("declaration must be a *FieldType or a Field, got %T", declaration)
}

func baseSpec(name string, typ *FieldType, escape bool) *FieldSpec {
	return &FieldSpec{
		name:   name,
		typ:    typ,
		escape: escape,
		set:    func(value any) (string, error) { return typ.Set(value, escape) },
		get:    func(wire string) (any, error) { return typ.Get(wire, escape) },
	}
}

// compileOverride 覆盖项组合在基础类型之后
func compileOverride(name string, field *Field) (*FieldSpec, error) {
	if field.Type == nil {
		return nil, errors.New("field declaration has no type")
	}

	spec := baseSpec(name, field.Type, field.Escape)
	if field.Values != nil {
		spec.values = append([]string(nil), field.Values...)
	}
	if override := field.Set; override != nil {
		base := spec.set
		spec.set = func(value any) (string, error) {
			wire, err := base(value)
			if err != nil {
				return "", err
			}
			return override(wire), nil
		}
	}
	if override := field.Get; override != nil {
		base := spec.get
		spec.get = func(wire string) (any, error) {
			value, err := base(wire)
			if err != nil {
				return nil, err
			}
			return override(value), nil
		}
	}
	return spec, nil
}
