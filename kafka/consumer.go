// Package kafka runs the generation worker: it consumes topic requests from
// a Kafka topic and feeds them to the pipeline orchestrator.
package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"

	"clipforge/config"
	"clipforge/pipeline"
)

// GenerateRequest is the message schema on the generation topic.
type GenerateRequest struct {
	Topic string `json:"topic"`
}

// Worker consumes generation requests and runs the pipeline for each.
// Requests on one partition are processed sequentially; a failed run is
// still marked consumed since its partial progress lives in the cache and a
// re-published request resumes from the failure point.
type Worker struct {
	group sarama.ConsumerGroup
	orch  *pipeline.Orchestrator
	cfg   config.KafkaConfig
	ready chan struct{}
}

func NewWorker(cfg config.KafkaConfig, orch *pipeline.Orchestrator) (*Worker, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_6_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, err
	}
	return &Worker{
		group: group,
		orch:  orch,
		cfg:   cfg,
		ready: make(chan struct{}),
	}, nil
}

// Start begins consuming. It returns once the consumer group session is
// established; consumption continues until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	handler := &sessionHandler{worker: w, ready: w.ready}

	go func() {
		for {
			if err := w.group.Consume(ctx, []string{w.cfg.Topic}, handler); err != nil {
				if err == context.Canceled {
					log.Println("[Worker] consumer context canceled")
					return
				}
				log.Printf("[Worker] consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan struct{})
		}
	}()

	<-w.ready
	log.Printf("[Worker] consuming (group=%s topic=%s)", w.cfg.GroupID, w.cfg.Topic)

	go func() {
		for err := range w.group.Errors() {
			log.Printf("[Worker] consumer error: %v", err)
		}
	}()
	return nil
}

// Close shuts the consumer group down.
func (w *Worker) Close() error {
	log.Println("[Worker] closing consumer")
	return w.group.Close()
}

// handle runs one generation request to completion.
func (w *Worker) handle(ctx context.Context, value []byte) bool {
	var req GenerateRequest
	if err := json.Unmarshal(value, &req); err != nil {
		log.Printf("[Worker] dropping malformed request: %v", err)
		return true
	}
	if req.Topic == "" {
		log.Printf("[Worker] dropping request without topic")
		return true
	}

	res := w.orch.Run(ctx, req.Topic)
	if !res.Success {
		log.Printf("[Worker] run failed for %q: %s", req.Topic, res.Error)
		return true
	}
	log.Printf("[Worker] done: %s", res.VideoPath)
	return true
}

type sessionHandler struct {
	worker *Worker
	ready  chan struct{}
}

func (h *sessionHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *sessionHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *sessionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			log.Printf("[Worker] request: partition=%d offset=%d", message.Partition, message.Offset)
			if h.worker.handle(session.Context(), message.Value) {
				session.MarkMessage(message, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}
