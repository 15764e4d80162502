package core

import (
	"reflect"

	"github.com/encodeous/ripd/state"
)

func Get[T state.RipModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
