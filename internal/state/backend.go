package state

import "fmt"

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Type   string            `json:"type"` // "local" or "s3"
	Config map[string]string `json:"config,omitempty"`
}

// NewStore creates a record store from configuration. A nil or empty
// configuration means local storage under projectDir.
func NewStore(cfg *StoreConfig, projectDir string) (Store, error) {
	if cfg == nil {
		return NewLocalStore(projectDir), nil
	}

	switch cfg.Type {
	case "local", "":
		return NewLocalStore(projectDir), nil
	case "s3":
		return newS3Store(cfg.Config)
	default:
		return nil, fmt.Errorf("unknown state store type: %s", cfg.Type)
	}
}
