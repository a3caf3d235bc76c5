package main

import (
	"fmt"
	"strings"

	"minuet/internal/config"
)

// commandContext resolves the daemon address lazily so commands that never
// touch the API do not require a readable config.
type commandContext struct {
	serverFlag *string
	configFlag *string
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) serverAddr() (string, error) {
	if c.serverFlag != nil {
		if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, _, _, err := config.Load(c.configPath())
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) client() (*apiClient, error) {
	addr, err := c.serverAddr()
	if err != nil {
		return nil, err
	}
	return newAPIClient(addr), nil
}
