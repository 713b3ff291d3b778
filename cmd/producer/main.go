package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"demo/ordercrm/internal/config"
	"demo/ordercrm/internal/gen"
	"demo/ordercrm/internal/logging"
)

// sender delivers one webhook body either to Kafka or straight to the HTTP webhook.
type sender func(ctx context.Context, payload map[string]any, source string) error

func main() {
	cfg, err := config.LoadProducer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.StringVar(&cfg.Target, "target", cfg.Target, "kafka or http")
	flag.StringVar(&cfg.WebhookURL, "url", cfg.WebhookURL, "webhook URL for -target=http")
	flag.BoolVar(&cfg.GenDemo, "demo", cfg.GenDemo, "generate #DEMO orders")
	flag.IntVar(&cfg.GenCount, "n", cfg.GenCount, "number of generated payloads when no files match")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("flags: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gen.SeedOnce()

	var send sender
	switch cfg.Target {
	case config.TargetKafka:
		logger.Info("producing to kafka",
			zap.Strings("brokers", cfg.Brokers()),
			zap.String("topic", cfg.KafkaWebhookTopic),
			zap.String("glob", cfg.DataGlob))
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers()...),
			Topic:        cfg.KafkaWebhookTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("close writer", zap.Error(err))
			}
		}()
		send = func(ctx context.Context, p map[string]any, source string) error {
			key, err := gen.SendPayload(ctx, w, p, source)
			if err != nil {
				return err
			}
			logger.Info("produced", zap.String("key", key), zap.String("source", source))
			return nil
		}
	case config.TargetHTTP:
		logger.Info("posting to webhook", zap.String("url", cfg.WebhookURL), zap.String("glob", cfg.DataGlob))
		client := &http.Client{Timeout: 10 * time.Second}
		send = func(ctx context.Context, p map[string]any, source string) error {
			if err := postPayload(ctx, client, cfg.WebhookURL, p); err != nil {
				return err
			}
			logger.Info("posted", zap.Any("id", p["id"]), zap.String("source", source))
			return nil
		}
	}

	paths, err := filepath.Glob(cfg.DataGlob)
	if err != nil {
		logger.Fatal("bad DATA_GLOB", zap.String("glob", cfg.DataGlob), zap.Error(err))
	}

	// no fixture files: generate payloads
	if len(paths) == 0 {
		gap := time.Duration(cfg.GenIntervalMS) * time.Millisecond
		for i := 0; i < cfg.GenCount; i++ {
			p := gen.FakePayload()
			if cfg.GenDemo {
				p = gen.FakeDemoPayload()
			}
			if err := send(context.Background(), p, "generated"); err != nil {
				logger.Fatal("produce", zap.Error(err))
			}
			if gap > 0 {
				time.Sleep(gap)
			}
		}
		logger.Info("done", zap.Int("generated", cfg.GenCount))
		return
	}

	total := 0
	for _, p := range paths {
		n, err := produceFile(context.Background(), send, p, logger)
		if err != nil {
			logger.Warn("skipping file", zap.String("file", p), zap.Error(err))
		}
		total += n
	}
	logger.Info("done", zap.Int("produced", total), zap.Int("files", len(paths)))
}

func postPayload(ctx context.Context, client *http.Client, url string, payload map[string]any) error {
	val, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(val))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// produceFile sends a JSON object or an array of objects.
func produceFile(ctx context.Context, send sender, path string, logger *zap.Logger) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	src := filepath.Base(path)

	var one map[string]any
	if err := json.Unmarshal(b, &one); err == nil && len(one) > 0 {
		if err := send(ctx, one, src); err != nil {
			return 0, err
		}
		return 1, nil
	}
	var many []map[string]any
	if err := json.Unmarshal(b, &many); err == nil && len(many) > 0 {
		sum := 0
		for _, obj := range many {
			if err := send(ctx, obj, src); err != nil {
				logger.Warn("produce", zap.String("file", src), zap.Error(err))
				continue
			}
			sum++
		}
		return sum, nil
	}
	return 0, fmt.Errorf("invalid JSON in %s: must be object or array of objects", path)
}
