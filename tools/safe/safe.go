package safe

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"go.uber.org/zap"
)

// MustNotNil panics if v is nil, including typed nils inside an interface.
// Used for required collaborators at construction time.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Go starts f on a goroutine that logs instead of crashing on panic.
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panic recovered",
					zap.String("name", name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		f()
	}()
}
