package orm

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompileSchema(t *testing.T) {
	Convey("compileSchema", t, func() {
		Convey("裸类型", func() {
			specs, err := compileSchema("user", Schema{"id": UUID, "name": String})
			So(err, ShouldBeNil)
			So(len(specs), ShouldEqual, 2)
			So(specs["name"].Type(), ShouldEqual, String)
			So(specs["name"].Escape(), ShouldBeFalse)
			So(specs["name"].Name(), ShouldEqual, "name")

			wire, err := specs["name"].Set("a.b")
			So(err, ShouldBeNil)
			So(wire, ShouldEqual, "a.b")
		})

		Convey("Field 声明与 escape", func() {
			specs, err := compileSchema("user", Schema{
				"id":    UUID,
				"title": Field{Type: String, Escape: true},
				"tags":  &Field{Type: Array},
			})
			So(err, ShouldBeNil)
			So(specs["title"].Escape(), ShouldBeTrue)

			wire, err := specs["title"].Set("a.b")
			So(err, ShouldBeNil)
			So(wire, ShouldEqual, `a\.b`)
			value, err := specs["title"].Get(wire)
			So(err, ShouldBeNil)
			So(value, ShouldEqual, "a.b")
		})

		Convey("覆盖项在基础类型之后执行", func() {
			specs, err := compileSchema("user", Schema{
				"id": UUID,
				"name": Field{
					Type:   String,
					Escape: true,
					Set:    strings.ToUpper,
					Get:    func(v any) any { return v.(string) + "!" },
				},
			})
			So(err, ShouldBeNil)

			wire, err := specs["name"].Set("a.b")
			So(err, ShouldBeNil)
			So(wire, ShouldEqual, `A\.B`)

			value, err := specs["name"].Get(wire)
			So(err, ShouldBeNil)
			So(value, ShouldEqual, "A.B!")
		})

		Convey("基础类型失败时不调用覆盖项", func() {
			called := false
			specs, err := compileSchema("user", Schema{
				"id":  UUID,
				"age": Field{Type: Integer, Set: func(s string) string {
					called = true
					return s
				}},
			})
			So(err, ShouldBeNil)
			_, err = specs["age"].Set("x")
			So(err, ShouldNotBeNil)
			So(called, ShouldBeFalse)
		})

		Convey("Enum 取值", func() {
			values := []string{"red", "green"}
			specs, err := compileSchema("car", Schema{
				"id":    UUID,
				"color": Field{Type: Enum, Values: values},
			})
			So(err, ShouldBeNil)
			values[0] = "blue"

			So(specs["color"].Validate("red"), ShouldBeTrue)
			So(specs["color"].Validate("blue"), ShouldBeFalse)
			So(specs["color"].Values(), ShouldResemble, []string{"red", "green"})
		})

		Convey("非法声明", func() {
			cases := []Schema{
				nil,
				{"name": String},
				{"id": UUID, "name": "string"},
				{"id": UUID, "name": Field{}},
				{"id": UUID, "name": (*FieldType)(nil)},
				{"id": UUID, "name": (*Field)(nil)},
				{"id": UUID, "key": String},
				{"id": UUID, "": String},
			}
			for _, schema := range cases {
				_, err := compileSchema("user", schema)
				So(err, ShouldNotBeNil)
				var ce *ConfigurationError
				So(errors.As(err, &ce), ShouldBeTrue)
				So(ce.Entity, ShouldEqual, "user")
			}
		})
	})
}
