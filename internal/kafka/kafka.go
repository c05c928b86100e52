// Package kafka prepares the signing task queue: topic creation and broker readiness probing
package kafka

import (
	"context"
	"errors"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// TopicConfigs builds single-partition topic configs; the worker runs one consumer.
func TopicConfigs(topics ...string) []kafkago.TopicConfig {
	res := make([]kafkago.TopicConfig, 0, len(topics))
	for _, t := range topics {
		res = append(res, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return res
}

// InitKafkaTopics creates the topics, retrying until every topic exists or ctx ends.
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{Topics: TopicConfigs(topics...)}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil && topicsReady(resp.Errors) {
			log.Println("All topics created successfully!")
			return nil
		}
		if err != nil {
			log.Printf("Failed to run topics creation request: %v\nWait %v before next try...", err, delay)
		}

		select {
		case <-ctx.Done():
			log.Println("InitKafkaTopics canceled or timed out")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func topicsReady(errs map[string]error) bool {
	ready := true
	for k, v := range errs {
		switch {
		case v == nil, errors.Is(v, kafkago.TopicAlreadyExists):
		default:
			log.Printf("Topic %q creation error: %v", k, v)
			ready = false
		}
	}
	return ready
}

// WaitKafkaReady blocks until the broker accepts a TCP connection or ctx ends.
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	dialer := &kafkago.Dialer{Timeout: 5 * time.Second}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close connection after testing Kafka readyness:", errConn)
			}
			log.Println("Kafka is ready!")
			return nil
		}
		log.Printf("Kafka not ready, retrying in %v...", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
