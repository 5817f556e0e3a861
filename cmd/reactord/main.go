// Command reactord bootstraps a Reactor listening for newline-framed echo
// connections (SPEC_FULL.md §2a, §6). Command-line parsing, config
// loading, and the logging sink are the "external collaborators" the
// original spec called out of scope for the core package; this is their
// concrete home.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	reactor "github.com/gotcp/reactor"
	"github.com/gotcp/reactor/internal/alog"
	"go.osspkg.com/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "", "path to a reactord.toml config file (optional)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	root := logx.New()
	if debug {
		logx.SetLevel(logx.LevelDebug)
	}

	cfg, err := reactor.LoadConfig(configPath)
	if err != nil {
		root.WithFields(logx.Fields{"err": err.Error()}).Errorf("reactord: invalid configuration")
		return 1
	}

	// Every reactor/worker/connection log call below goes through this
	// async sink instead of straight to root, so a slow log destination
	// never stalls the reactor goroutine (SPEC_FULL.md §2c).
	log := alog.New(root, cfg.Workers, alog.DefaultQueueLength)
	defer log.Close()

	r, err := reactor.New(cfg.Workers, log)
	if err != nil {
		log.WithFields(logx.Fields{"err": err.Error()}).Errorf("reactord: setup failure")
		return 1
	}

	bufs := reactor.NewSharedBufferPool(cfg.Workers)
	if _, err := reactor.ListenAndRegister(r, "0.0.0.0", cfg.Port, log, bufs); err != nil {
		log.WithFields(logx.Fields{"err": err.Error(), "port": cfg.Port}).Errorf("reactord: listen failed")
		return 1
	}

	log.WithFields(logx.Fields{"port": cfg.Port, "workers": cfg.Workers}).Infof("reactord: listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			log.WithFields(logx.Fields{"err": err.Error()}).Errorf("reactord: shutdown error")
		}
	}()

	if err := r.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
