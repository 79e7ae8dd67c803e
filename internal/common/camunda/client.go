package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps a Zeebe gateway connection.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
}

// NewClient dials the gateway and verifies it with a topology request.
func NewClient(address string, connectionTimeout time.Duration) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      connectionTimeout,
	})
}

func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck issues a topology request bounded by the connection timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
