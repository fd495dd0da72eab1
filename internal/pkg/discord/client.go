// Package discord grants guild roles through the Discord REST API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

const DefaultAPIBase = "https://discord.com/api/v10"

// RoleGranter adds a role to a guild member.
type RoleGranter interface {
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}

type Client struct {
	APIBase    string
	BotToken   string
	HTTPClient *http.Client
}

func NewClient(cfg config.Discord, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return &Client{
		APIBase:    base,
		BotToken:   cfg.BotToken,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NewRoleGranter returns the mock in mock mode and the REST client otherwise.
func NewRoleGranter(cfg config.Discord, timeout time.Duration) RoleGranter {
	if cfg.Mock {
		return Mock{}
	}
	return NewClient(cfg, timeout)
}

func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	if strings.TrimSpace(c.BotToken) == "" {
		return errors.New("DISCORD_BOT_TOKEN is not configured")
	}
	if guildID == "" || userID == "" || roleID == "" {
		return errors.New("guild, user and role ids are required")
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		c.APIBase, url.PathEscape(guildID), url.PathEscape(userID), url.PathEscape(roleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	req.Header.Set("X-Audit-Log-Reason", "GuildPay purchase")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("discord role grant failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

// Mock accepts every grant.
type Mock struct{}

func (Mock) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return nil
}
