package rpc

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/autoschematic-sh/autoschematic/internal/connector"
)

// Handshake must stay identical between every connector binary and
// the engine that hosts it. The cookie value is arbitrary but fixed;
// changing it invalidates every connector built against the old value.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AUTOSCHEMATIC_CONNECTOR_MAGIC_COOKIE",
	MagicCookieValue: "a83e1b9c0f7c4e7fa5a5f2a5a9d2a7db",
}

// PluginMap is the single entry go-plugin dispenses under the name
// "connector".
var PluginMap = map[string]goplugin.Plugin{
	"connector": &Plugin{},
}

// Plugin bridges connector.Connector to go-plugin's net/rpc transport.
// Impl is set when hosting a connector (the connector binary's main);
// it is left nil on the client side, where go-plugin only calls
// Client.
type Plugin struct {
	Impl connector.Connector
}

var _ goplugin.Plugin = (*Plugin)(nil)

func (p *Plugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &Server{Impl: p.Impl}, nil
}

func (p *Plugin) Client(broker *goplugin.MuxBroker, client *rpc.Client) (interface{}, error) {
	return NewClient(client), nil
}
