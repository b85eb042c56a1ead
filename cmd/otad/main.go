// Command otad receives firmware updates over BLE or a serial link and
// commits them to the local A/B slot directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-bleota/config"
	"github.com/moffa90/go-bleota/flash"
	"github.com/moffa90/go-bleota/history"
	"github.com/moffa90/go-bleota/internal/logger"
	"github.com/moffa90/go-bleota/internal/tracer"
	"github.com/moffa90/go-bleota/ota"
	"github.com/moffa90/go-bleota/reboot"
	"github.com/moffa90/go-bleota/transport/ble"
	"github.com/moffa90/go-bleota/transport/stream"
)

func main() {
	configPath := flag.String("config", "/etc/bleota/otad.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "otad: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger, "otad")
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer, tracer.Identity{Service: "otad", Device: cfg.Device.Name})
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	restarter, err := reboot.FromMode(cfg.Reboot.Mode, cfg.Reboot.ExitCode)
	if err != nil {
		return err
	}

	sink := flash.NewFileSink(cfg.Flash.Dir,
		flash.WithSlotSize(cfg.Flash.SlotSize),
		flash.WithImageVerification(cfg.Flash.VerifyImage),
	)
	active, err := sink.ActiveSlot()
	if err != nil {
		return fmt.Errorf("read active slot: %w", err)
	}

	opts := []ota.Option{
		ota.WithLogger(log),
		ota.WithRestarter(restarter),
		ota.WithMaxMessageSize(cfg.Device.MaxMessageSize),
		ota.WithIdleTimeout(cfg.Session.IdleTimeout),
		ota.WithStrictSize(cfg.Session.StrictSize),
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, ota.WithRecorder(store))
	}

	sess := ota.New(sink, opts...)
	go sess.Run(ctx)

	log.Info("otad starting",
		"transport", cfg.Transport.Kind,
		"flash_dir", cfg.Flash.Dir,
		"active_slot", active,
		"reboot", cfg.Reboot.Mode,
	)

	err = serve(ctx, cfg, sess, log)
	if ctx.Err() != nil {
		log.Info("otad stopped")
		return nil
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config, sess *ota.Session, log *slog.Logger) error {
	switch cfg.Transport.Kind {
	case "serial":
		port, err := stream.OpenSerial(cfg.Transport.Port, cfg.Transport.BaudRate)
		if err != nil {
			return err
		}
		defer port.Close()

		srv := stream.NewServer(sess,
			stream.WithLogger(log),
			stream.WithMaxMessageSize(cfg.Device.MaxMessageSize),
		)
		return srv.Serve(ctx, port)

	default:
		p := ble.NewPeripheral(bluetooth.DefaultAdapter, sess,
			ble.WithDeviceName(cfg.Device.Name),
			ble.WithUUIDs(cfg.Device.ServiceUUID, cfg.Device.CharacteristicUUID),
			ble.WithLogger(log),
		)
		return p.Run(ctx)
	}
}
