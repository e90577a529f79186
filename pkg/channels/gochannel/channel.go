// Package gochannel provides the in-process watermill channel used when no
// broker is configured.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer bounds the events queued per subscriber.
const DefaultBuffer = 1024

// CreateChannel returns one GoChannel acting as both publisher and
// subscriber. Publishing does not wait for subscriber acks.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return create(logger, gochannel.Config{OutputChannelBuffer: DefaultBuffer})
}

// CreateTestChannel keeps published events and blocks each publish until it
// is acked, so subscribers see events in publish order.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return create(logger, gochannel.Config{
		OutputChannelBuffer:            16,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	})
}

func create(logger watermill.LoggerAdapter, config gochannel.Config) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(config, logger)

	return pubSub, pubSub, nil
}
