package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"

	commonlog "renamer/server/common/log"
	"renamer/server/streamer/source"
)

// Client runs an MTProto connection authenticated as the bot and hands out
// API handles once it is ready.
type Client struct {
	client   *telegram.Client
	botToken string

	ready chan struct{}
	api   *tg.Client

	mu  sync.Mutex
	dcs map[int]*tg.Client
	inv []telegram.CloseInvoker
}

func NewClient(appID int, appHash, botToken string, storage session.Storage) *Client {
	return &Client{
		client:   telegram.NewClient(appID, appHash, telegram.Options{SessionStorage: storage}),
		botToken: botToken,
		ready:    make(chan struct{}),
		dcs:      map[int]*tg.Client{},
	}
}

// Run blocks until ctx is cancelled or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := c.client.Auth().Bot(ctx, c.botToken); err != nil {
				return fmt.Errorf("bot login: %w", err)
			}
		}
		c.api = c.client.API()
		close(c.ready)
		commonlog.Infof("telegram mtproto client ready")

		<-ctx.Done()
		c.closeDCs()
		return ctx.Err()
	})
}

func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

func (c *Client) API() (rpc, error) {
	if !c.Ready() {
		return nil, source.TransientError.New("telegram client not ready")
	}
	return c.api, nil
}

// DC returns an API handle bound to another datacenter, dialing it once.
func (c *Client) DC(ctx context.Context, dc int) (rpc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if api, ok := c.dcs[dc]; ok {
		return api, nil
	}
	inv, err := c.client.DC(ctx, dc, 4)
	if err != nil {
		return nil, err
	}
	api := tg.NewClient(inv)
	c.dcs[dc] = api
	c.inv = append(c.inv, inv)
	return api, nil
}

func (c *Client) closeDCs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, inv := range c.inv {
		_ = inv.Close()
	}
	c.inv = nil
	c.dcs = map[int]*tg.Client{}
}
