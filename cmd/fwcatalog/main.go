// Command fwcatalog serves a firmware catalog directory over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/moffa90/go-bleota/config"
	"github.com/moffa90/go-bleota/firmware"
	"github.com/moffa90/go-bleota/internal/logger"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	dir := flag.String("dir", "firmware", "catalog directory")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := run(*addr, *dir, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "fwcatalog: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, dir, level string) error {
	log, closeLog, err := logger.New(config.LoggerConfig{Level: level, Output: "stderr"}, "fwcatalog")
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := firmware.NewServer(dir, log)
	httpSrv := &http.Server{Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	log.Info("firmware catalog listening", "addr", l.Addr().String(), "dir", dir)
	if err := httpSrv.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
