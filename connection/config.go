package connection

const (
	defaultEndpoint     = "ws://localhost:8000/api/chat/ws"
	defaultSignalBuffer = 64
)

// Config holds connection manager parameters.
type Config struct {
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	SignalBuffer int    `json:"signal_buffer,omitempty" yaml:"signal_buffer,omitempty"`
}

// DefaultConfig returns a Config pointing at a local agent.
func DefaultConfig() Config {
	return Config{
		Endpoint:     defaultEndpoint,
		SignalBuffer: defaultSignalBuffer,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.SignalBuffer > 0 {
		c.SignalBuffer = source.SignalBuffer
	}
}
