package cms

import (
	"strings"
	"sync"
)

// Arg is one named hook argument.
type Arg struct {
	Name  string
	Value any
}

// Args is an ordered list of named hook arguments. Order matters: the
// first argument is the one a before-hook may replace.
type Args []Arg

// Value returns the named argument or nil.
func (a Args) Value(name string) any {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value
		}
	}
	return nil
}

// String returns the named argument as a string, or "".
func (a Args) String(name string) string {
	s, _ := a.Value(name).(string)
	return s
}

// Names returns the argument names in order.
func (a Args) Names() []string {
	names := make([]string, len(a))
	for i, arg := range a {
		names[i] = arg.Name
	}
	return names
}

// With returns a copy of a with the named argument set to v.
func (a Args) With(name string, v any) Args {
	out := make(Args, len(a))
	copy(out, a)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = v
			return out
		}
	}
	return append(out, Arg{Name: name, Value: v})
}

// Event is what a hook handler receives.
type Event struct {
	Name string
	Args Args
}

// Arg returns the named argument of the event.
func (e *Event) Arg(name string) any { return e.Args.Value(name) }

// HookFunc handles an event. A non-nil result replaces the modifiable
// argument for the following handlers; an error aborts the action.
type HookFunc func(e *Event) (any, error)

type hook struct {
	pattern string
	fn      HookFunc
	running bool
}

// Hooks dispatches events named "{type}.{action}:{state}" to registered
// handlers. Patterns may use "*" for any segment, e.g. "page.*:after",
// "*.create:before" or "*". A handler is never re-entered while it is
// already running, so a hook that mutates the model it observes does not
// recurse.
type Hooks struct {
	mu    sync.Mutex
	hooks []*hook
}

// NewHooks creates an empty dispatcher.
func NewHooks() *Hooks {
	return &Hooks{}
}

// Register adds a handler for an event pattern.
func (h *Hooks) Register(pattern string, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, &hook{pattern: pattern, fn: fn})
}

// Apply runs every handler matching event in registration order and
// threads the value of the modify argument through them. It returns the
// final value of that argument.
func (h *Hooks) Apply(event string, args Args, modify string) (any, error) {
	value := args.Value(modify)
	for _, hk := range h.matching(event) {
		if !h.enter(hk) {
			continue
		}
		result, err := hk.fn(&Event{Name: event, Args: args})
		h.leave(hk)
		if err != nil {
			return nil, err
		}
		if result != nil {
			value = result
			args = args.With(modify, value)
		}
	}
	return value, nil
}

// Trigger runs every handler matching event and ignores their results.
func (h *Hooks) Trigger(event string, args Args) error {
	for _, hk := range h.matching(event) {
		if !h.enter(hk) {
			continue
		}
		_, err := hk.fn(&Event{Name: event, Args: args})
		h.leave(hk)
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) matching(event string) []*hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*hook
	for _, hk := range h.hooks {
		if matchEvent(hk.pattern, event) {
			out = append(out, hk)
		}
	}
	return out
}

func (h *Hooks) enter(hk *hook) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hk.running {
		return false
	}
	hk.running = true
	return true
}

func (h *Hooks) leave(hk *hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hk.running = false
}

// matchEvent compares "type.action:state" names segment by segment.
func matchEvent(pattern, event string) bool {
	if pattern == "*" || pattern == event {
		return true
	}
	pt, pa, ps := splitEvent(pattern)
	et, ea, es := splitEvent(event)
	return segmentMatch(pt, et) && segmentMatch(pa, ea) && segmentMatch(ps, es)
}

func splitEvent(name string) (typ, action, state string) {
	typ, rest, _ := strings.Cut(name, ".")
	action, state, _ = strings.Cut(rest, ":")
	return typ, action, state
}

func segmentMatch(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
