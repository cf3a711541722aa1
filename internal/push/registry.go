package push

import "context"

// Channel identifies a provisioned push endpoint.
type Channel struct {
	ID         int    `json:"channelId"`
	ConnectKey string `json:"connectKey"`
}

// NoChannel is the wire sentinel older clients expect when a user never
// initialized a channel. Inside the service absence is a nil pointer on the
// user record, never a magic integer.
const NoChannel = -1

// ChannelRegistry is the full external push-channel contract this service
// depends on. Implementations: the embedded websocket gateway and the remote
// stargate client.
type ChannelRegistry interface {
	CreateChannel(ctx context.Context) (Channel, error)
	ValidateChannel(ctx context.Context, channelID int, connectKey string) error
	Push(ctx context.Context, channelID int, payload []byte, persist bool) error
}
