// Package race implements the "first of several named events to finish"
// primitive as a standalone helper. The handshake layers (CMI, CSH, CSHP)
// do not call it; each races its own fixed branch set with a plain typed
// select. The Python source awaits over a map of named coroutines and
// inspects which one finished; a Go select statement can't range over a
// map of channels with unknown static shape, so FirstToFinish uses
// reflect.Select instead.
package race

import "reflect"

// Result names the winning branch of a FirstToFinish call and carries the
// value it produced, if any.
type Result[T any] struct {
	Name  string
	Value T
	// Ok is false when the winning channel was closed rather than sent on.
	Ok bool
}

// FirstToFinish blocks until exactly one of the named channels becomes
// ready, then returns its name, value, and whether the channel was closed
// (Ok=false) rather than having sent a value. Callers own cancellation of
// the losing branches' producers, typically via a shared context.Context
// passed to each one; FirstToFinish itself never cancels anything, and on
// simultaneous readiness it returns a single pseudo-randomly chosen winner
// rather than every co-winner. It is a reshaping of the race primitive for
// Go's channel idioms, not a drop-in match for it.
//
// It panics if branches is empty.
func FirstToFinish[T any](branches map[string]<-chan T) Result[T] {
	if len(branches) == 0 {
		panic("race: FirstToFinish requires at least one branch")
	}

	names := make([]string, 0, len(branches))
	cases := make([]reflect.SelectCase, 0, len(branches))
	for name, ch := range branches {
		names = append(names, name)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(ch),
		})
	}

	chosen, value, ok := reflect.Select(cases)

	var v T
	if ok {
		v = value.Interface().(T)
	}
	return Result[T]{Name: names[chosen], Value: v, Ok: ok}
}
