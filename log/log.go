package log

import (
	"github.com/hatlonely/hashorm/log/logger"
	"github.com/hatlonely/hashorm/log/writer"
	"github.com/hatlonely/hashorm/ref"
	"github.com/pkg/errors"
)

type Logger = logger.Logger

var defaultLogger logger.Logger

func init() {
	ref.MustRegisterT[writer.ConsoleWriter](writer.NewConsoleWriterWithOptions)
	ref.MustRegisterT[writer.FileWriter](writer.NewFileWriterWithOptions)
	ref.MustRegisterT[logger.SLog](logger.NewSLogWithOptions)

	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

// Default 返回输出到 stdout 的 text 格式日志器
func Default() Logger {
	return defaultLogger
}

// NewLoggerWithOptions 根据 TypeOptions 创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *ref.TypeOptions) (Logger, error) {
	if options == nil {
		return Default(), nil
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/hashorm/log/logger"
	}

	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	l, ok := obj.(Logger)
	if !ok {
		return nil, errors.Errorf("%T does not implement Logger", obj)
	}
	return l, nil
}
