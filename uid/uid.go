package uid

import (
	"github.com/google/uuid"
	"github.com/hatlonely/hashorm/ref"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[NanoIDGenerator](NewNanoIDGeneratorWithOptions)
	ref.MustRegisterT[UUIDGenerator](NewUUIDGeneratorWithOptions)
}

// StrGenerator 生成字符串 UID
type StrGenerator interface {
	Generate() string
}

// NewStrGeneratorWithOptions 按 TypeOptions 创建生成器，namespace 默认为本包
func NewStrGeneratorWithOptions(options *ref.TypeOptions) (StrGenerator, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/hashorm/uid"
	}
	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	generator, ok := obj.(StrGenerator)
	if !ok {
		return nil, errors.Errorf("%T is not a StrGenerator", obj)
	}
	return generator, nil
}

// DefaultNanoIDSize nano id 默认长度
const DefaultNanoIDSize = 21

type NanoIDOptions struct {
	Size int `cfg:"size" def:"21" validate:"gte=0"`

	// 为空时使用 nanoid 默认的 URL 安全字母表
	Alphabet string `cfg:"alphabet"`
}

// NanoIDGenerator 生成 URL 安全的随机短 ID
type NanoIDGenerator struct {
	size     int
	alphabet string
}

func NewNanoIDGeneratorWithOptions(options *NanoIDOptions) (*NanoIDGenerator, error) {
	if options == nil {
		options = &NanoIDOptions{}
	}
	size := options.Size
	if size == 0 {
		size = DefaultNanoIDSize
	}
	if size < 0 {
		return nil, errors.Errorf("invalid nano id size %d", size)
	}
	g := &NanoIDGenerator{size: size, alphabet: options.Alphabet}
	// 提前校验字母表，避免 Generate 时才失败
	if _, err := g.generate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *NanoIDGenerator) generate() (string, error) {
	if g.alphabet == "" {
		id, err := gonanoid.New(g.size)
		return id, errors.Wrap(err, "gonanoid.New failed")
	}
	id, err := gonanoid.Generate(g.alphabet, g.size)
	return id, errors.Wrap(err, "gonanoid.Generate failed")
}

// Generate 字母表已在构造时校验，这里只在随机源失败时 panic
func (g *NanoIDGenerator) Generate() string {
	id, err := g.generate()
	if err != nil {
		panic(err)
	}
	return id
}

func (g *NanoIDGenerator) Size() int {
	return g.size
}

type UUIDOptions struct {
	// 支持 v4, v7
	Version string `cfg:"version" def:"v4" validate:"omitempty,oneof=v4 v7"`
}

// UUIDGenerator 生成带连字符的 UUID 字符串
type UUIDGenerator struct {
	version string
}

func NewUUIDGeneratorWithOptions(options *UUIDOptions) *UUIDGenerator {
	if options == nil || options.Version == "" {
		return &UUIDGenerator{version: "v4"}
	}
	return &UUIDGenerator{version: options.Version}
}

func (g *UUIDGenerator) Generate() string {
	if g.version == "v7" {
		if u, err := uuid.NewV7(); err == nil {
			return u.String()
		}
	}
	return uuid.NewString()
}
