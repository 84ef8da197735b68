// Package goja decodes MQTT payloads with ECMAScript.
//
// A decoder's code is the body of a function that sees the topic and
// the payload at _ and returns what the payload means:
//
//	string:           a line of console input ("p1", ":coin", "reset")
//	array of strings: symbols ("pick_up", "1", "coin")
//	object:           a request ({"invoke":"dial","with":"h"})
//	null/undefined:   nothing
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Decode if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// DefaultTimeout bounds each execution.
	DefaultTimeout = 100 * time.Millisecond
)

// LibraryProvider resolves a library name into source.
type LibraryProvider func(name string) (string, error)

// MakeFileLibraryProvider reads libraries from files in the given
// directory.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(name string) (string, error) {
		bs, err := os.ReadFile(filepath.Join(dir, filepath.Clean("/"+name)))
		if err != nil {
			return "", err
		}
		return string(bs), nil
	}
}

func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Decoder implements sio.Decoder using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Decoder struct {
	// Timeout bounds each execution.  Defaults to DefaultTimeout.
	Timeout time.Duration

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	program *goja.Program
}

// NewDecoder compiles the code with its required libraries, which
// are prepended in order.
func NewDecoder(code string, requires []string, provider LibraryProvider) (*Decoder, error) {
	var libsSrc string
	for _, lib := range requires {
		if provider == nil {
			return nil, fmt.Errorf("no provider for library '%s'", lib)
		}
		libSrc, err := provider(lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	src := libsSrc + wrapSrc(code)

	p, err := goja.Compile("decoder", src, true)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		Timeout: DefaultTimeout,
		program: p,
	}, nil
}

// NewDecoderFromFile reads the code from a file.  Libraries are
// resolved relative to that file.
func NewDecoderFromFile(filename string, requires []string) (*Decoder, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewDecoder(string(bs), requires, MakeFileLibraryProvider(filepath.Dir(filename)))
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Decode implements sio.Decoder.
//
// The following properties are available from the runtime at _.
//
//	topic: the MQTT topic.
//	payload: the payload as a string.
//	json: the payload parsed as JSON, or null if it isn't JSON.
//
// Some useful utilities:
//
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time (RFC3339) for the cron expression.
//	log(x): log the given value.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (d *Decoder) Decode(topic string, payload []byte) ([]core.Event, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = logger.WithKV(logger.WithName(ctx, "goja"), "topic", topic)

	var parsed interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		parsed = nil
	}

	o := goja.New()

	env := map[string]interface{}{
		"topic":   topic,
		"payload": string(payload),
		"json":    parsed,
	}

	if d.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		logger.InfoKV(ctx, "log", "value", x)
		return x
	}

	o.Set("_", env)

	// Make sure that the following goroutine is terminated as
	// soon as possible.
	ictx, stop := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		if ctx.Err() != nil {
			o.Interrupt(InterruptedMessage)
		}
	}()

	v, err := o.RunProgram(d.program)
	stop()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	return toEvents(v.Export())
}

func toEvents(x interface{}) ([]core.Event, error) {
	switch vv := x.(type) {
	case nil:
		return nil, nil
	case string:
		return sio.ParseLine(vv), nil
	case []interface{}:
		acc := make([]core.Event, 0, len(vv))
		for _, y := range vv {
			var s string
			switch z := y.(type) {
			case string:
				s = z
			case int64:
				s = fmt.Sprint(z)
			case float64:
				if z != float64(int64(z)) {
					return nil, fmt.Errorf("%v isn't a symbol", z)
				}
				s = fmt.Sprint(int64(z))
			default:
				return nil, fmt.Errorf("%#v (%T) isn't a symbol", y, y)
			}
			sym, err := core.ParseSymbol(s)
			if err != nil {
				return nil, err
			}
			acc = append(acc, core.SymbolEvent{Symbol: sym})
		}
		return acc, nil
	case map[string]interface{}:
		js, err := json.Marshal(vv)
		if err != nil {
			return nil, err
		}
		r, err := sio.ParseRequest(js)
		if err != nil {
			return nil, err
		}
		return r.Events()
	default:
		return nil, fmt.Errorf("%#v (%T) isn't something a decoder can return", x, x)
	}
}

var _ sio.Decoder = &Decoder{}
