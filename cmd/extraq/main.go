package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tqviet/extraq"
	"github.com/tqviet/extraq/pkg/importer"
	"github.com/tqviet/extraq/pkg/importers/bills"
	"github.com/tqviet/extraq/pkg/source"
)

func main() {
	eq := extraq.NewExtraq(&extraq.Options{})

	if key := os.Getenv("EXTRAQ_API_KEY"); len(key) > 0 {
		client, err := source.NewClient(&source.Options{
			APIKey: key,
			Region: os.Getenv("EXTRAQ_REGION"),
		})
		if err != nil {
			log.Fatalf("failed to create source client: %v", err)
		}

		err = eq.Register("bills", func() (importer.Importer, error) {
			return bills.New(&bills.Options{
				Client: client,
			})
		})
		if err != nil {
			log.Fatalf("failed to register bills importer: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		err := eq.Run()
		if err != nil {
			stop()
		}
	}()

	<-ctx.Done()

	eq.Close()

	os.Exit(0)
}
