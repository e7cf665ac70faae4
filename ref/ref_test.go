package ref

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type widgetOptions struct {
	Name string
	Size int
}

type widget struct {
	name string
	size int
}

func newWidgetWithOptions(options *widgetOptions) (*widget, error) {
	if options == nil {
		return &widget{name: "default"}, nil
	}
	if options.Size < 0 {
		return nil, errors.New("negative size")
	}
	return &widget{name: options.Name, size: options.Size}, nil
}

func newWidget() *widget {
	return &widget{name: "plain"}
}

type mapConvertable map[string]any

func (m mapConvertable) ConvertTo(object any) error {
	o, ok := object.(*widgetOptions)
	if !ok {
		return errors.New("unexpected target")
	}
	o.Name, _ = m["name"].(string)
	o.Size, _ = m["size"].(int)
	return nil
}

func TestRegisterAndNew(t *testing.T) {
	Convey("Register / New", t, func() {
		So(Register("test/ref", "Widget", newWidgetWithOptions), ShouldBeNil)
		So(Register("test/ref", "PlainWidget", newWidget), ShouldBeNil)

		Convey("重复注册同一函数是幂等的", func() {
			So(Register("test/ref", "Widget", newWidgetWithOptions), ShouldBeNil)
		})

		Convey("同名注册不同函数返回错误", func() {
			So(Register("test/ref", "Widget", newWidget), ShouldNotBeNil)
		})

		Convey("非函数不能注册", func() {
			So(Register("test/ref", "Bad", 42), ShouldNotBeNil)
		})

		Convey("直接传入参数", func() {
			obj, err := New("test/ref", "Widget", &widgetOptions{Name: "w", Size: 3})
			So(err, ShouldBeNil)
			So(obj.(*widget).name, ShouldEqual, "w")
			So(obj.(*widget).size, ShouldEqual, 3)
		})

		Convey("nil 指针参数交给构造函数处理", func() {
			obj, err := New("test/ref", "Widget", nil)
			So(err, ShouldBeNil)
			So(obj.(*widget).name, ShouldEqual, "default")
		})

		Convey("Convertable 参数按构造函数类型转换", func() {
			obj, err := NewWithOptions(&TypeOptions{
				Namespace: "test/ref",
				Type:      "Widget",
				Options:   mapConvertable{"name": "converted", "size": 7},
			})
			So(err, ShouldBeNil)
			So(obj.(*widget).name, ShouldEqual, "converted")
			So(obj.(*widget).size, ShouldEqual, 7)
		})

		Convey("构造函数返回的错误被透传", func() {
			_, err := New("test/ref", "Widget", &widgetOptions{Size: -1})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "negative size")
		})

		Convey("参数类型不匹配", func() {
			_, err := New("test/ref", "Widget", "oops")
			So(err, ShouldNotBeNil)
		})

		Convey("无参构造函数", func() {
			obj, err := New("test/ref", "PlainWidget", nil)
			So(err, ShouldBeNil)
			So(obj.(*widget).name, ShouldEqual, "plain")
		})

		Convey("未注册的类型", func() {
			_, err := New("test/ref", "Missing", nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRegisterT(t *testing.T) {
	Convey("RegisterT / NewT", t, func() {
		So(RegisterT[TypeOptions](func() TypeOptions { return TypeOptions{Type: "x"} }), ShouldBeNil)

		options, err := NewT[TypeOptions](nil)
		So(err, ShouldBeNil)
		So(options.Type, ShouldEqual, "x")
	})
}
