package internal

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/envvar"
)

// KafkaProducer bundles the producer and the topic change events go to.
type KafkaProducer struct {
	Producer *kafka.Producer
	Topic    string
}

// NewKafkaProducer instantiates the Kafka producer using configuration
// defined in environment variables.
func NewKafkaProducer(conf *envvar.Configuration) (*KafkaProducer, error) {
	host, err := conf.Get("KAFKA_HOST")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_HOST")
	}

	topic, err := conf.Get("KAFKA_TOPIC")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_TOPIC")
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": host,
	})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "kafka.NewProducer")
	}

	return &KafkaProducer{
		Producer: producer,
		Topic:    topic,
	}, nil
}

// KafkaConsumer bundles the consumer and the topic it is subscribed to.
type KafkaConsumer struct {
	Consumer *kafka.Consumer
	Topic    string
}

// NewKafkaConsumer instantiates the Kafka consumer using configuration
// defined in environment variables.
func NewKafkaConsumer(conf *envvar.Configuration, groupID string) (*KafkaConsumer, error) {
	host, err := conf.Get("KAFKA_HOST")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_HOST")
	}

	topic, err := conf.Get("KAFKA_TOPIC")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_TOPIC")
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": host,
		"group.id":          groupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "kafka.NewConsumer")
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "consumer.Subscribe")
	}

	return &KafkaConsumer{
		Consumer: consumer,
		Topic:    topic,
	}, nil
}
