//go:build js && wasm

// pview-web runs viewer inside browser page served by "pview serve". Page is
// expected to have element with id "viewer" which becomes rendering surface.
// Function pviewJump("path#anchor") is exported for table of contents.
package main

import (
	"context"
	"net/http"
	"syscall/js"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pview/book"
	"pview/fetch"
	"pview/misc"
	"pview/surface/dom"
	"pview/viewer"
)

// pending positions above this are dropped, newer ones always follow
const saveQueue = 16

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	log := newLogger().Named(misc.GetAppName())
	defer log.Sync()

	ctx := context.Background()
	origin := js.Global().Get("location").Get("origin").String()

	client := fetch.NewHTTPLoader(&http.Client{Timeout: 30 * time.Second}, log)

	m, err := client.FetchManifest(ctx, origin+"/api/book")
	if err != nil {
		log.Error("Unable to get book manifest", zap.Error(err))
		return
	}
	root, err := book.ParseStaticRoot(m.Settings.StaticRoot)
	if err != nil {
		log.Error("Bad static root", zap.Error(err))
		return
	}

	container := js.Global().Get("document").Call("getElementById", "viewer")
	if !container.Truthy() {
		log.Error("Page has no viewer element")
		return
	}

	positions := make(chan book.Position, saveQueue)
	go func() {
		for pos := range positions {
			if err := client.SavePosition(ctx, origin+"/api/position", pos); err != nil {
				log.Warn("Unable to save position", zap.Error(err))
			}
		}
	}()

	v, err := viewer.New(m.Book, m.Position, root, dom.New(container), client,
		viewer.WithPad(m.Settings.Pad),
		viewer.WithBoundary(m.Settings.Boundary),
		viewer.WithPreprocessor(m.Settings.Preprocessor(root, log)),
		viewer.WithOnNavigate(func(pos book.Position) {
			select {
			case positions <- pos:
			default:
				log.Debug("Position dropped, save queue is full", zap.Int("index", pos.CurrentIndex))
			}
		}),
		viewer.WithOnError(func(err error) {
			log.Error("Viewer error", zap.Error(err))
		}),
		viewer.WithLogger(log),
	)
	if err != nil {
		log.Error("Unable to create viewer", zap.Error(err))
		return
	}

	jump := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		ref := args[0].String()
		go func() {
			if err := v.JumpToSection(ctx, ref); err != nil {
				log.Error("Unable to jump to section", zap.String("ref", ref), zap.Error(err))
			}
		}()
		return nil
	})
	js.Global().Set("pviewJump", jump)

	resize := js.FuncOf(func(js.Value, []js.Value) any {
		go func() {
			if err := v.Render(ctx, ""); err != nil {
				log.Error("Unable to render after resize", zap.Error(err))
			}
		}()
		return nil
	})
	js.Global().Call("addEventListener", "resize", resize)

	if err := v.Render(ctx, ""); err != nil {
		log.Error("Unable to render document", zap.Error(err))
	}
	log.Info("Viewer started", zap.String("book", m.Book.ID), zap.Int("documents", m.Book.Len()))

	// wasm program must stay alive to serve callbacks
	select {}
}
