package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accredmap/backend/internal/queue"
	"github.com/accredmap/backend/internal/server"
	"github.com/accredmap/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/accredmap/backend/pkg/leaselock"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/logger/console"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
	"github.com/accredmap/backend/pkg/store"
	"github.com/accredmap/backend/pkg/store/memory"
	pgstore "github.com/accredmap/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	embedder := server.NewEmbeddingClient()

	// Init pgx client
	var conn *pgxpool.Pool
	var mappings store.MappingStore
	var embeddings store.EmbeddingCache

	if dbURL := util.GetEnvString("DATABASE_URL", ""); dbURL != "" {
		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			logger.Fatal("Invalid DATABASE_URL", "err", err)
		}
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
		conn, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer conn.Close()

		if err := pgstore.EnsureSchema(ctx, conn); err != nil {
			logger.Fatal("Failed to ensure database schema", "err", err)
		}
		mappings = pgstore.NewMappingDBStore(conn)
		embeddings = pgstore.NewEmbeddingDBCache(conn)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		mappings = memory.NewMappingMemoryStore()
		embeddings = memory.NewEmbeddingMemoryCache()
	}

	graphOpts := []standards.GraphOption{}
	if conn != nil {
		graphOpts = append(graphOpts, standards.WithLease(leaselock.New(conn)))
	}
	if embedder != nil {
		graphOpts = append(graphOpts, standards.WithWarmup(func(ctx context.Context, gen *standards.Generation) error {
			return embeddings.Warm(ctx, gen, embedder)
		}))
	}
	graph := standards.NewGraph(graphOpts...)

	engine := match.NewEngine(match.NewEngineParams{
		Config:     server.MatchConfigFromEnv(),
		Embedder:   embedder,
		Embeddings: embeddings,
	})

	corpusDir := util.GetEnvString("CORPUS_DIR", "corpus")
	if _, err := graph.Reload(ctx, corpusDir, true); err != nil {
		logger.Error("Initial corpus load failed", "err", err)
	}

	// Init rabbitmq
	rq := queue.Init()
	defer rq.Close()

	ch, err := rq.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one message is
	// processed at a time across all queues.
	consumerCh, err := rq.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.AnalyzeQueue:
					processingErr = queue.ProcessAnalyzeMessage(ctx, engine, graph, mappings, string(qm.msg.Body))
				case queue.ReloadQueue:
					processingErr = queue.ProcessReloadMessage(ctx, graph, string(qm.msg.Body))
				}

				// On error send to retry or dead-letter, otherwise ack
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				if embedder != nil {
					metrics := embedder.GetMetrics()
					logger.Info(
						"AI Metrics",
						"input_tokens", metrics.InputTokens,
						"total_tokens", metrics.TotalTokens,
						"duration_ms", metrics.DurationMs,
					)
					embedder.ResetMetrics()
				}

				logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond).String())
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the message goes to the dead-letter queue
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
