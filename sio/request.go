package sio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Comcast/fernspiel/core"

	"github.com/jsccast/yaml"
)

var (
	// ErrNoInvoke means a request without an "invoke".
	ErrNoInvoke = errors.New("request has no invoke")
)

// Invocations
const (
	InvokeRun      = "run"
	InvokeReset    = "reset"
	InvokeDial     = "dial"
	InvokeShutdown = "shutdown"
)

// Request is what a remote controller sends, as YAML or JSON.
//
//	{"invoke": "run", "with": <phonebook>}
//	{"invoke": "reset"}
//	{"invoke": "dial", "with": "p1h"}
//	{"invoke": "shutdown"}
type Request struct {
	Invoke string      `json:"invoke" yaml:"invoke"`
	With   interface{} `json:"with,omitempty" yaml:"with,omitempty"`

	// Book is the phonebook of a parsed "run".
	Book *core.BookSpec `json:"-" yaml:"-"`
}

// UnknownInvoke is an error for a Request with an unsupported Invoke.
type UnknownInvoke struct {
	Invoke string
}

func (e *UnknownInvoke) Error() string {
	return fmt.Sprintf("unknown invoke %q", e.Invoke)
}

// ParseRequest reads YAML (or JSON).
func ParseRequest(src []byte) (*Request, error) {
	var r Request
	if err := yaml.Unmarshal(src, &r); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if r.Invoke == "" {
		return nil, ErrNoInvoke
	}
	if r.Invoke == InvokeRun && r.With != nil {
		// Struct keys are kept as written ("on" isn't a bool).
		var run struct {
			With *core.BookSpec `yaml:"with"`
		}
		if err := yaml.Unmarshal(src, &run); err != nil {
			return nil, fmt.Errorf("malformed phonebook: %w", err)
		}
		r.Book = run.With
	}
	return &r, nil
}

// Events compiles the Request into the events it stands for.
//
// A "run" compiles its phonebook, so a bad phonebook gives a
// *core.LoadFault here rather than disturbing the running Engine.
func (r *Request) Events() ([]core.Event, error) {
	switch r.Invoke {
	case InvokeRun:
		spec := r.Book
		if spec == nil {
			if r.With == nil {
				return nil, fmt.Errorf("run without a phonebook")
			}
			js, err := json.Marshal(jsonable(r.With))
			if err != nil {
				return nil, fmt.Errorf("malformed phonebook: %w", err)
			}
			spec = &core.BookSpec{}
			if err := json.Unmarshal(js, spec); err != nil {
				return nil, fmt.Errorf("malformed phonebook: %w", err)
			}
		}
		b, err := core.Compile(spec)
		if err != nil {
			return nil, err
		}
		return []core.Event{core.Load{Book: b}}, nil

	case InvokeReset:
		return []core.Event{core.Reset{}}, nil

	case InvokeDial:
		s, is := r.With.(string)
		if !is {
			return nil, fmt.Errorf("dial wants a string, not %T", r.With)
		}
		return core.Symbols(core.ParseDialString(s)...), nil

	case InvokeShutdown:
		return []core.Event{core.Shutdown{}}, nil

	default:
		return nil, &UnknownInvoke{Invoke: r.Invoke}
	}
}

// jsonable replaces the map[interface{}]interface{} values that YAML
// decoding makes with maps that encoding/json accepts.
func jsonable(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprint(k)] = jsonable(v)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = jsonable(v)
		}
		return m
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = jsonable(v)
		}
		return acc
	default:
		return x
	}
}
