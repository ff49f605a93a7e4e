package store

// Config holds store parameters.
type Config struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // FileStore root; empty keeps state in memory only.
}

// DefaultConfig returns a Config that keeps state in memory.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// New creates the Store described by cfg: a FileStore rooted at Path, or a
// MemoryStore when Path is empty.
func New(cfg *Config) Store {
	if cfg.Path == "" {
		return NewMemoryStore()
	}
	return NewFileStore(cfg.Path)
}
