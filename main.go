package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sam/app/client/chrome"
	"sam/app/client/speechd"
	"sam/app/config"
	"sam/app/service/actions"
	"sam/app/service/classify"
	"sam/app/service/engine"
	"sam/app/service/memory"
	"sam/app/service/router"
	"sam/app/service/sysmon"
	"sam/app/service/tts"
	"sam/app/service/whatsapp"
	"sam/app/session"
	"sam/app/state"
	"sam/app/ui"
	"sam/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, state.New)
	do.Provide(di, session.New)
	do.Provide(di, chrome.NewClient)
	do.Provide(di, speechd.New)
	do.Provide(di, memory.New)
	do.Provide(di, classify.New)
	do.Provide(di, tts.New)
	do.Provide(di, whatsapp.NewGate)
	do.Provide(di, whatsapp.NewBrowser)
	do.Provide(di, whatsapp.NewAssistant)
	do.Provide(di, whatsapp.NewReplyEngine)
	do.Provide(di, sysmon.New)
	do.Provide(di, actions.NewLauncher)
	do.Provide(di, actions.NewOpener)
	do.Provide(di, router.New)
	do.Provide(di, engine.New)

	do.Provide(di, func(di *do.Injector) (ui.Voice, error) {
		return do.MustInvoke[*tts.Service](di), nil
	})

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go func() {
		if err := do.MustInvoke[*speechd.Server](di).Run(appCtx); err != nil {
			log.Fatalf("speech server failed: %v", err)
		}
	}()

	go do.MustInvoke[*sysmon.Watcher](di).Run(appCtx)

	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	<-appCtx.Done()
}
