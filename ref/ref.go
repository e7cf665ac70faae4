package ref

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeOptions 通过 namespace + type 定位一个已注册的构造函数，Options 为构造参数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

// Convertable 延迟转换的配置数据
// 构造函数的参数类型只有在调用时才确定，实现该接口的 options 会被转换成参数类型
type Convertable interface {
	ConvertTo(object any) error
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type constructor struct {
	fn        reflect.Value
	withArg   bool
	withError bool
}

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, fmt.Errorf("constructor must take at most 1 argument, got %d", ft.NumIn())
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if !ft.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("second return value of constructor must be error")
		}
	default:
		return nil, fmt.Errorf("constructor must return 1 or 2 values, got %d", ft.NumOut())
	}

	return &constructor{
		fn:        fv,
		withArg:   ft.NumIn() == 1,
		withError: ft.NumOut() == 2,
	}, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.withArg {
		arg, err := c.argument(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := c.fn.Call(args)
	if c.withError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// argument 把 options 适配成构造函数的参数类型
func (c *constructor) argument(options any) (reflect.Value, error) {
	argType := c.fn.Type().In(0)

	if convertable, ok := options.(Convertable); ok {
		if argType.Kind() == reflect.Ptr {
			target := reflect.New(argType.Elem())
			if err := convertable.ConvertTo(target.Interface()); err != nil {
				return reflect.Value{}, fmt.Errorf("convert options to %v failed: %w", argType, err)
			}
			return target, nil
		}
		target := reflect.New(argType)
		if err := convertable.ConvertTo(target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("convert options to %v failed: %w", argType, err)
		}
		return target.Elem(), nil
	}

	if options == nil {
		// 指针参数允许为 nil，由构造函数自行处理默认值
		if argType.Kind() == reflect.Ptr || argType.Kind() == reflect.Interface {
			return reflect.Zero(argType), nil
		}
		return reflect.Value{}, fmt.Errorf("constructor requires options of type %v but got nil", argType)
	}

	value := reflect.ValueOf(options)
	if !value.Type().AssignableTo(argType) {
		return reflect.Value{}, fmt.Errorf("options of type %T is not assignable to %v", options, argType)
	}
	return value, nil
}

var constructors sync.Map

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，重复注册同一个函数是幂等的
func Register(namespace, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return err
	}

	if existing, loaded := constructors.LoadOrStore(key(namespace, typ), c); loaded {
		if existing.(*constructor).fn.Pointer() != c.fn.Pointer() {
			return fmt.Errorf("constructor for %s:%s already registered", namespace, typ)
		}
	}
	return nil
}

// RegisterT 使用 T 的包路径和类型名作为 namespace 和 type 注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegister(namespace, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

func typeName[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or name of %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}

// New 调用 namespace:typ 对应的构造函数
func New(namespace, typ string, options any) (any, error) {
	v, ok := constructors.Load(key(namespace, typ))
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s:%s", namespace, typ)
	}
	return v.(*constructor).call(options)
}

func NewWithOptions(options *TypeOptions) (any, error) {
	if options == nil {
		return nil, fmt.Errorf("type options is nil")
	}
	return New(options.Namespace, options.Type, options.Options)
}

// NewT 按 T 的类型名构造对象并断言为 T
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeName[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("object of type %T is not %T", obj, zero)
	}
	return result, nil
}
