// Command demo-hostapp is a small web host for the SDK. It logs users in with
// a password or the hosted login page and keeps their tokens in a server side
// session.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/client"
	"github.com/ReachFive/identity-android-sdk-sub000/stores/fs"
	"github.com/ReachFive/identity-android-sdk-sub000/stores/gae"
	redisstore "github.com/ReachFive/identity-android-sdk-sub000/stores/redis"
)

func main() {
	app := &cli.App{
		Name:  "demo-hostapp",
		Usage: "ReachFive login demo",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"DEMO_ADDR"}, Usage: "listen address"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file with REACHFIVE_* settings"},
			&cli.StringFlag{Name: "session-dir", EnvVars: []string{"DEMO_SESSION_DIR"}, Usage: "session storage directory (default: temp dir)"},
			&cli.StringFlag{Name: "session-key", EnvVars: []string{"DEMO_SESSION_KEY"}, Required: true, Usage: "session signing key"},
			&cli.BoolFlag{Name: "debug", Usage: "log flow transitions"},
		},
		Before: func(cctx *cli.Context) error {
			if err := godotenv.Load(cctx.String("env-file")); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", cctx.String("env-file"), err)
			}
			return nil
		},
		Action: run,
	}

	app.RunAndExitOnError()
}

func run(cctx *cli.Context) error {
	level := slog.LevelInfo
	if cctx.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(reachfive.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := reachfive.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	store, err := openStore(cctx.Context, cfg)
	if err != nil {
		return err
	}

	srv := NewServer(cfg, SessionStore(cctx.String("session-dir"), []byte(cctx.String("session-key"))), logger)
	c, err := client.New(cfg, store, client.WithBrowser(srv), client.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cctx.Context, 30*time.Second)
	defer cancel()
	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	srv.Client = c

	logger.Info("listening", "addr", cctx.String("addr"), "domain", cfg.Domain)
	httpd := &http.Server{
		Addr:              cctx.String("addr"),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpd.ListenAndServe()
}

func openStore(ctx context.Context, cfg reachfive.Config) (reachfive.Store, error) {
	if cfg.DatastoreProject != "" {
		dc, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, fmt.Errorf("datastore: %w", err)
		}
		return gae.NewDatastoreStore(dc, cfg.DatastoreNamespace), nil
	}
	if cfg.RedisAddr != "" {
		return redisstore.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})), nil
	}
	return fs.NewFSStore(cfg.StoreDir, cfg.AppName)
}
