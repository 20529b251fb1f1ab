package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewGoChannelBus builds an in-memory event bus. The engine is
// single-process, so the gochannel pubsub is the production transport,
// not just a test double.
func NewGoChannelBus(logger watermill.LoggerAdapter) *WatermillEventBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1000,
			Persistent:          false,
		},
		logger,
	)

	return NewWatermillEventBus(pubSub, pubSub)
}

// NewTestBus uses small buffers and persistent messages so tests can
// assert on delivery deterministically.
func NewTestBus(logger watermill.LoggerAdapter) *WatermillEventBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            10,
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)

	return NewWatermillEventBus(pubSub, pubSub)
}
