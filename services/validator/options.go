package validator

import (
	"github.com/bitnames/bitnames/util/kafka"
)

type Options struct {
	relay kafka.KafkaProducerI
}

// Option is a function that sets some option on the Options struct
type Option func(*Options)

func ProcessOptions(opts ...Option) *Options {
	options := &Options{}
	for _, o := range opts {
		o(options)
	}

	return options
}

// WithRelay publishes every accepted transaction to producer.
func WithRelay(producer kafka.KafkaProducerI) Option {
	return func(o *Options) {
		o.relay = producer
	}
}
