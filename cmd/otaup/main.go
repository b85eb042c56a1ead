// Command otaup uploads a firmware image to a device running otad.
//
// The image comes from a local file or from the newest release in a firmware
// catalog; it is sent over BLE or a serial link.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-bleota/config"
	"github.com/moffa90/go-bleota/firmware"
	"github.com/moffa90/go-bleota/internal/logger"
	"github.com/moffa90/go-bleota/protocol"
	"github.com/moffa90/go-bleota/transport/stream"
	"github.com/moffa90/go-bleota/uploader"
)

type options struct {
	image       string
	catalog     string
	save        string
	device      string
	serialPort  string
	baud        int
	chunkSize   int
	rateLimit   float64
	retries     int
	scanTimeout time.Duration
	noResponse  bool
	validate    bool
	logLevel    string
}

func main() {
	var o options
	flag.StringVar(&o.image, "image", "", "firmware image to upload")
	flag.StringVar(&o.catalog, "catalog", "", "firmware catalog URL; uploads the newest release when -image is not set")
	flag.StringVar(&o.save, "save", "downloaded_firmware.bin", "where to store an image fetched from the catalog")
	flag.StringVar(&o.device, "device", protocol.DefaultDeviceName, "BLE device name (substring match)")
	flag.StringVar(&o.serialPort, "serial", "", "upload over this serial port instead of BLE")
	flag.IntVar(&o.baud, "baud", 115200, "serial baud rate")
	flag.IntVar(&o.chunkSize, "chunk", protocol.DefaultChunkSize, "image bytes per CHUNK message")
	flag.Float64Var(&o.rateLimit, "rate", 0, "maximum CHUNK messages per second (0 = unlimited)")
	flag.IntVar(&o.retries, "retries", 0, "extra attempts for a failed INIT or END; transfer restarts after a failed CHUNK")
	flag.DurationVar(&o.scanTimeout, "scan-timeout", 10*time.Second, "BLE scan timeout")
	flag.BoolVar(&o.noResponse, "no-response", false, "use BLE write commands instead of write requests")
	flag.BoolVar(&o.validate, "validate", true, "check the ESP image header and checksum before sending")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "otaup: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	log, closeLog, err := logger.New(config.LoggerConfig{Level: o.logLevel, Output: "stderr"}, "otaup")
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := o.image
	if path == "" {
		if o.catalog == "" {
			return fmt.Errorf("either -image or -catalog is required")
		}
		if path, err = fetchLatest(ctx, o.catalog, o.save, log); err != nil {
			return err
		}
	}

	w, closeWriter, err := dial(ctx, o)
	if err != nil {
		return err
	}
	defer closeWriter()

	up := uploader.New(w,
		uploader.WithLogger(log),
		uploader.WithChunkSize(o.chunkSize),
		uploader.WithRetries(o.retries),
		uploader.WithRateLimit(o.rateLimit),
		uploader.WithImageValidation(o.validate),
		uploader.WithProgressCallback(func(p uploader.Progress) {
			fmt.Printf("\r[%-8s] %5.1f%%  chunk %d/%d  %d bytes", p.Phase, p.Percentage, p.CurrentChunk, p.TotalChunks, p.BytesSent)
			if p.Phase == uploader.PhaseComplete {
				fmt.Println()
			}
		}),
	)

	return up.UploadFile(ctx, path)
}

func fetchLatest(ctx context.Context, catalogURL, savePath string, log *slog.Logger) (string, error) {
	client := firmware.NewClient(catalogURL, nil)

	meta, err := client.Latest(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch firmware metadata: %w", err)
	}
	log.Info("found firmware", "filename", meta.Filename, "version", meta.Version)

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(savePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := client.Download(ctx, meta.Filename, f)
	if err != nil {
		return "", err
	}
	log.Info("firmware downloaded", "path", savePath, "bytes", n)
	return savePath, nil
}

func dial(ctx context.Context, o options) (uploader.Writer, func() error, error) {
	if o.serialPort != "" {
		port, err := stream.OpenSerial(o.serialPort, o.baud)
		if err != nil {
			return nil, nil, err
		}
		client := stream.NewClient(port)
		return client, client.Close, nil
	}

	w, err := uploader.DialBLE(ctx, bluetooth.DefaultAdapter, uploader.BLETarget{
		Name:               o.device,
		ServiceUUID:        protocol.ServiceUUID16,
		CharacteristicUUID: protocol.CharacteristicUUID16,
		ScanTimeout:        o.scanTimeout,
		WithoutResponse:    o.noResponse,
	})
	if err != nil {
		return nil, nil, err
	}
	return w, w.Close, nil
}
