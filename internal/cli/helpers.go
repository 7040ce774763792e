/*
Package cli implements the evomemory command line interface.

Every command opens the memory from the default configuration, runs one
operation and closes it; the daemon embedding this subsystem keeps a
long-lived handle instead.
*/
package cli

import (
	"github.com/khanglvm/evomemory/internal/config"
	"github.com/khanglvm/evomemory/internal/memory"
)

// openMemory loads configuration and opens the memory subsystem.
func openMemory() (*memory.Memory, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	mem, err := memory.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	return mem, cfg, nil
}
