// Package hook connects reducers to a host's local reducer-state primitive.
//
// A host owns one state slot per component and re-renders the component when
// the slot changes. UseReducer and UseMergeReducer build a reducer with the
// reducerx factories and hand it to the host, returning the current state and
// a dispatch function. Cell is a host for programs that have no UI framework
// of their own.
package hook

import (
	"github.com/roach88/reducerx"
)

// Dispatch sends an action to the reducer behind a hook. It returns the
// handler's error, if any; the state is then left as it was.
type Dispatch func(action reducerx.Action) error

// Host is a local reducer-state primitive.
//
// UseReducer is called on every render. The first call stores initial; every
// call returns the current state and a dispatch function that runs reduce and
// schedules a re-render when the state pointer changes.
type Host[S any] interface {
	UseReducer(reduce reducerx.Reducer[S], initial *S) (*S, Dispatch)
}

// UseReducer binds a full-state reducer to host.
func UseReducer[S any](host Host[S], initial *S, handlers reducerx.HandlerMap[S], opts ...reducerx.Option[S]) (*S, Dispatch) {
	return host.UseReducer(reducerx.New(initial, handlers, opts...), initial)
}

// UseMergeReducer binds a patch reducer to host.
func UseMergeReducer[S any](host Host[S], initial *S, handlers reducerx.PartialHandlerMap[S], opts ...reducerx.Option[S]) (*S, Dispatch) {
	return host.UseReducer(reducerx.NewMerge(initial, handlers, opts...), initial)
}
