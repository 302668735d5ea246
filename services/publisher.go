package services

import (
	"log/slog"

	pubnub "github.com/pubnub/go"
)

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

// NewPubNubPublisher wraps a PubNub client as a Publisher.
func NewPubNubPublisher(pn *pubnub.PubNub) Publisher {
	return &pubnubPublisher{pn: pn}
}

func (p *pubnubPublisher) Publish(channel string, message map[string]any) {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub: publish", "channel", channel, "error", err)
	}
}
