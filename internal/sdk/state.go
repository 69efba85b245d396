package sdk

// ConnectionState is the SDK connection state machine.
type ConnectionState string

const (
	StateInitial        ConnectionState = "initial"
	StatePreparing      ConnectionState = "preparing"
	StatePrepared       ConnectionState = "prepared"
	StateOffline        ConnectionState = "offline"
	StateConnecting     ConnectionState = "connecting"
	StateConnected      ConnectionState = "connected"
	StateReady          ConnectionState = "ready"
	StateConnectionLost ConnectionState = "connectionLost"
)

// ChatMode is the channel's conversation model.
type ChatMode string

const (
	ModeSingleThread ChatMode = "singlethread"
	ModeMultiThread  ChatMode = "multithread"
	ModeLiveChat     ChatMode = "livechat"
)

// Environment selects the SDK backend. Custom environments carry explicit
// URLs instead of a named region.
type Environment struct {
	Name      string `yaml:"name" json:"name"`
	ChatURL   string `yaml:"chat_url" json:"chatURL,omitempty"`
	SocketURL string `yaml:"socket_url" json:"socketURL,omitempty"`
	BrandID   int    `yaml:"brand_id" json:"brandId"`
	ChannelID string `yaml:"channel_id" json:"channelId"`
}
