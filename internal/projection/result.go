package projection

import (
	"go.uber.org/zap"
)

// Result is the success/error envelope returned by the exported entry
// points. Data is only meaningful when Success is true.
type Result[T any] struct {
	Success bool   `json:"success" yaml:"success"`
	Data    T      `json:"data" yaml:"data"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// failed logs err and converts it into a failure envelope.
func failed[T any](op string, err error) Result[T] {
	zap.L().Error("projection: "+op+" failed", zap.Error(err))
	return Result[T]{Success: false, Error: err.Error()}
}
