package collector

import (
	"fmt"
	"time"

	"github.com/gorcon/rcon"
)

const (
	consoleDialTimeout = 3 * time.Second
	consoleExecTimeout = 5 * time.Second
)

// ConsoleClient runs commands on the game server console over Source RCON.
// Each command uses a fresh connection; CS2 drops idle RCON sessions quickly
// enough that keeping one open is not worth the reconnect handling.
type ConsoleClient struct {
	address  string
	password string
}

// NewConsoleClient creates an RCON console client
func NewConsoleClient(address, password string) *ConsoleClient {
	return &ConsoleClient{address: address, password: password}
}

// Run executes a console command and returns its raw text output
func (c *ConsoleClient) Run(command string) (string, error) {
	if c.password == "" {
		return "", fmt.Errorf("rcon not configured")
	}

	conn, err := rcon.Dial(c.address, c.password,
		rcon.SetDialTimeout(consoleDialTimeout),
		rcon.SetDeadline(consoleExecTimeout))
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", c.address, err)
	}
	defer conn.Close()

	output, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("executing %q: %w", command, err)
	}
	return output, nil
}
