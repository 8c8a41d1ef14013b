package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is wrapped by panics raised for incompatible operand dimensions.
	ErrShape = errors.New("matrix: dimension mismatch")
	// ErrIndexOutOfRange is wrapped by panics raised for invalid element, row or column indices.
	ErrIndexOutOfRange = errors.New("matrix: index out of range")
)

func shapePanic(op string, format string, args ...any) {
	panic(fmt.Errorf("matrix.%s: %s: %w", op, fmt.Sprintf(format, args...), ErrShape))
}

func indexPanic(op string, format string, args ...any) {
	panic(fmt.Errorf("matrix.%s: %s: %w", op, fmt.Sprintf(format, args...), ErrIndexOutOfRange))
}
