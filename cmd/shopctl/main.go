// Command shopctl runs operator tasks: schema migrations, product imports
// and queue inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/urfave/cli/v2"

	"github.com/shopmanager/shopmanager/internal/app"
	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/db"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/shared"
	"github.com/shopmanager/shopmanager/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := NewApp(defaultDeps(), os.Stdout).RunContext(ctx, os.Args)
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "shopctl:", err)
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		os.Exit(exit.ExitCode())
	}
	os.Exit(1)
}

func openImporter(ctx context.Context, dsn string) (ProductImporter, func(), error) {
	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(&app.Config{LogLevel: "warn"})
	svc := products.NewService(
		lifecycle.NewPostgresStore[products.Product](pool, products.Schema.Entity, "products"),
		products.NewUploadStore(pool), logger)
	return svc, pool.Close, nil
}

func openPruner(ctx context.Context, dsn string) (KeyPruner, func(), error) {
	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 1})
	if err != nil {
		return nil, nil, err
	}
	return shared.NewIdempotencyStore(pool), pool.Close, nil
}

type queue struct {
	*jobs.Client
	inspector *asynq.Inspector
}

func openQueue(redisAddr string) (Queue, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &queue{Client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

func (q *queue) GetQueueInfo(name string) (*asynq.QueueInfo, error) {
	return q.inspector.GetQueueInfo(name)
}

func (q *queue) Close() error {
	return errors.Join(q.inspector.Close(), q.Client.Close())
}
