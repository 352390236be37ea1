//go:build js

package main

import (
	"context"
	"syscall/js"
	"time"

	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/protocol/transfer"
)

var (
	jsError      = js.Global().Get("Error")
	jsPromise    = js.Global().Get("Promise")
	jsUint8Array = js.Global().Get("Uint8Array")
)

func main() {
	js.Global().Set("beamSend", js.FuncOf(send))
	js.Global().Set("beamReceive", js.FuncOf(receive))
	select {}
}

// send wraps portal.Send.
//
//	beamSend(fileName, data, config?, onProgress?)
//
// It returns a promise resolving to {password, done}, where done is a second
// promise that settles when the transfer is over.
func send(this js.Value, args []js.Value) any {
	data := jsUint8Array.New(args[1])
	b := make([]byte, data.Get("length").Int())
	js.CopyBytesToGo(b, data)
	src := file.NewMemory(args[0].String(), b)
	cfg, opts := configFromJs(arg(args, 2)), progressOpts(arg(args, 3))

	return promise(func() (any, error) {
		pass, errC, err := portal.Send(context.Background(), src, cfg, opts...)
		if err != nil {
			return nil, err
		}
		done := promise(func() (any, error) {
			return nil, <-errC
		})
		return map[string]any{"password": pass, "done": done}, nil
	})
}

// receive wraps portal.Receive.
//
//	beamReceive(password, config?, onProgress?)
//
// It returns a promise resolving to {fileName, data}.
func receive(this js.Value, args []js.Value) any {
	pass := args[0].String()
	cfg, opts := configFromJs(arg(args, 1)), progressOpts(arg(args, 2))

	return promise(func() (any, error) {
		f, err := portal.Receive(context.Background(), pass, cfg, opts...)
		if err != nil {
			return nil, err
		}
		data := jsUint8Array.New(len(f.Bytes))
		js.CopyBytesToJS(data, f.Bytes)
		return map[string]any{"fileName": f.Name, "data": data}, nil
	})
}

// promise runs fn on its own goroutine and settles a JS promise with its result.
func promise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := fn()
			if err != nil {
				reject.Invoke(jsError.New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return jsPromise.New(executor)
}

func arg(args []js.Value, i int) js.Value {
	if i >= len(args) {
		return js.Undefined()
	}
	return args[i]
}

// progressOpts forwards progress and negotiation events to the JS callback
// as onProgress({role, percent}) and onProgress({type}).
func progressOpts(fn js.Value) []portal.Option {
	if fn.Type() != js.TypeFunction {
		return nil
	}
	return []portal.Option{
		portal.WithProgress(func(p transfer.Progress) {
			fn.Invoke(map[string]any{"role": p.Role.String(), "percent": p.Percent})
		}),
		portal.WithNegotiated(func(t transfer.Type) {
			fn.Invoke(map[string]any{"type": t.String()})
		}),
	}
}

// configFromJs reads the optional config object. Absent fields keep their defaults.
func configFromJs(cnfJs js.Value) *portal.Config {
	if cnfJs.Type() != js.TypeObject {
		return nil
	}
	var cnf portal.Config
	if v := cnfJs.Get("RendezvousAddr"); v.Type() == js.TypeString {
		cnf.RendezvousAddr = v.String()
	}
	if v := cnfJs.Get("ICEServers"); v.Type() == js.TypeObject {
		for i := 0; i < v.Length(); i++ {
			cnf.ICEServers = append(cnf.ICEServers, v.Index(i).String())
		}
	}
	if v := cnfJs.Get("ChunkSize"); v.Type() == js.TypeNumber {
		cnf.ChunkSize = v.Int()
	}
	if v := cnfJs.Get("RelayOnly"); v.Type() == js.TypeBoolean {
		cnf.RelayOnly = v.Bool()
	}
	if v := cnfJs.Get("ChannelTimeoutMs"); v.Type() == js.TypeNumber {
		cnf.ChannelTimeout = time.Duration(v.Int()) * time.Millisecond
	}
	return &cnf
}
