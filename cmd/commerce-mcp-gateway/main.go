package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	gateway "github.com/caradhras-io/commerce-mcp-gateway"
	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

const logMessageLimit = 250

// truncatingFormatter caps log message length so oversized backend payloads
// do not flood the log stream.
type truncatingFormatter struct {
	inner logrus.Formatter
	limit int
}

func (f *truncatingFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if len(entry.Message) > f.limit {
		entry.Message = entry.Message[:f.limit] + "..."
	}
	return f.inner.Format(entry)
}

func configFromEnv() gateway.Config {
	cfg := gateway.DefaultConfig()
	if v := os.Getenv("APP_NAME"); v != "" {
		cfg.AppName = v
	}
	if v := os.Getenv("VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("ACCOUNT"); v != "" {
		cfg.Account = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SessionTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("INVENTORY_URL"); v != "" {
		cfg.InventoryURL = v
	}
	if v := os.Getenv("ORDER_URL"); v != "" {
		cfg.OrderURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

func main() {
	cfg := configFromEnv()

	base := logrus.New()
	base.SetFormatter(&truncatingFormatter{
		inner: &logrus.TextFormatter{FullTimestamp: true},
		limit: logMessageLimit,
	})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		base.SetLevel(level)
	} else {
		base.SetLevel(logrus.InfoLevel)
		base.Warnf("unknown log level %q, using info", cfg.LogLevel)
	}
	logger := observability.NewLogrusLogger(base)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		base.WithError(err).Fatal("gateway setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(map[string]interface{}{
		"addr":            cfg.ListenAddr(),
		"session_timeout": cfg.SessionTimeout.String(),
		"inventory_url":   cfg.InventoryURL,
		"order_url":       cfg.OrderURL,
	}).Info("starting commerce MCP gateway")

	if err := gw.Run(ctx); err != nil {
		base.WithError(err).Fatal("gateway exited with error")
	}
	logger.Info("gateway stopped")
}
