package mq

import (
	"testing"
	"time"
)

func TestToKafkaMessageHeaders(t *testing.T) {
	msg := NewMessage([]byte(`{"ok":true}`))
	msg.ID = "sub-1"
	msg.SetHeader("challenge_id", "1")
	msg.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	km := toKafkaMessage("judge.reports", msg)
	if km.Topic != "judge.reports" || string(km.Key) != "sub-1" || string(km.Value) != `{"ok":true}` {
		t.Fatalf("unexpected kafka message: %+v", km)
	}
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["challenge_id"] != "1" || headers[headerID] != "sub-1" {
		t.Fatalf("unexpected headers: %v", headers)
	}
	if headers[headerTimestamp] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected timestamp header: %s", headers[headerTimestamp])
	}
}

func TestNewKafkaProducerRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaProducer(KafkaConfig{}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	p, err := NewKafkaProducer(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.config.BatchSize != 100 || p.config.DialTimeout != 10*time.Second {
		t.Fatalf("defaults not applied: %+v", p.config)
	}
	_ = p.Close()
}
