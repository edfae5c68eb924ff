package broker

import (
	"fmt"

	"dispatcher/internal/config"
	"dispatcher/internal/constants"
	"dispatcher/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaProducer(cfg.Kafka, log), nil
	case constants.BrokerTypeMemory:
		return NewMemoryProducer(), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// NewConsumer returns nil for the memory broker: messages then arrive only
// through the push endpoint.
func NewConsumer(cfg config.BrokerConfig, deadLetter DeadLetterSink, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaConsumer(cfg.Kafka, deadLetter, log), nil
	case constants.BrokerTypeMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
