// Package broker はドメインイベントをメッセージブローカーへ配信する
package broker

import (
	"context"
	"fmt"
)

// ドライバ名
const (
	DriverNone     = "none"
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
)

// Publisher はイベントを配信する
type Publisher interface {
	Publish(ctx context.Context, routingKey, key string, payload any) error
	Close() error
}

// Options はブローカー接続設定
type Options struct {
	Driver       string
	RabbitMQURL  string
	KafkaBrokers []string
	Topic        string
}

// New はドライバに応じた Publisher を作成する
func New(opts Options) (Publisher, error) {
	switch opts.Driver {
	case "", DriverNone:
		return NoopPublisher{}, nil
	case DriverRabbitMQ:
		return NewRabbitMQPublisher(opts.RabbitMQURL)
	case DriverKafka:
		return NewKafkaPublisher(opts.KafkaBrokers, opts.Topic)
	default:
		return nil, fmt.Errorf("未対応のブローカードライバです: %s", opts.Driver)
	}
}

// NoopPublisher は何も配信しない
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
