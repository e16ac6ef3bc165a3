package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNotNumeric is returned when an expression evaluates to anything but a finite number.
var ErrNotNumeric = errors.New("scripting: expression is not numeric")

// Evaluator evaluates arithmetic expressions such as "level * 2 + 1".
//
// Every call runs in a fresh sandboxed state, so Evaluator is safe for
// concurrent use and no expression can observe another's globals.
type Evaluator struct {
	limit  int
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator with an opcode budget of instLimit per call.
//
// Precondition: logger must be non-nil.
func NewEvaluator(instLimit int, logger *zap.Logger) *Evaluator {
	return &Evaluator{limit: instLimit, logger: logger}
}

// Eval evaluates expr with each entry of vars bound as a global number.
//
// Postcondition: Returns the numeric result, or an error when expr fails to
// compile, exceeds the opcode budget or yields a non-numeric value.
func (e *Evaluator) Eval(expr string, vars map[string]float64) (float64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, fmt.Errorf("%w: empty expression", ErrNotNumeric)
	}
	L, cancel := NewSandboxedState(e.limit)
	defer L.Close()
	defer cancel()

	for name, v := range vars {
		L.SetGlobal(name, lua.LNumber(v))
	}
	if err := L.DoString("return (" + expr + ")"); err != nil {
		e.logger.Warn("formula evaluation failed",
			zap.String("expr", expr),
			zap.Error(err),
		)
		return 0, fmt.Errorf("evaluating %q: %w", expr, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%w: %q returned %s", ErrNotNumeric, expr, ret.Type())
	}
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q returned %v", ErrNotNumeric, expr, v)
	}
	return v, nil
}
