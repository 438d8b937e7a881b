package config_test

import (
	"fmt"

	"github.com/wonny/marketdash/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Default window: %s @ %s\n", cfg.Market.DefaultPeriod, cfg.Market.DefaultInterval)
	fmt.Printf("Fetch retries: %d (timeout %s)\n", cfg.Market.Retries, cfg.Market.Timeout)
}
