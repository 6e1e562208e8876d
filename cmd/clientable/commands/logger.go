package commands

import (
	"io"
	"sort"

	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
)

// hclogLogger adapts an hclog.Logger to clientable.Logger.
type hclogLogger struct {
	logger hclog.Logger
}

var _ clientable.Logger = (*hclogLogger)(nil)

// newLogger writes to w at debug level when --verbose or --debug is set and
// at warn level otherwise.
func newLogger(w io.Writer) *hclogLogger {
	level := hclog.Warn
	if viper.GetBool("verbose") || viper.GetBool("debug") {
		level = hclog.Debug
	}

	return &hclogLogger{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "clientable",
			Level:  level,
			Output: w,
		}),
	}
}

func (l *hclogLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, pairs(fields)...)
}

func (l *hclogLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, pairs(fields)...)
}

func (l *hclogLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, pairs(fields)...)
}

func (l *hclogLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, pairs(fields)...)
}

// pairs flattens fields into hclog's key/value arguments in key order.
func pairs(fields map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	args := make([]interface{}, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	return args
}
