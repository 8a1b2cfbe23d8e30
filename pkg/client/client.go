package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/pkg/logger"
)

// Client keeps a View synchronized with a room server. It merges three input
// streams through the reducer: an initial hydration fetch, the websocket
// broadcast stream, and a periodic polling fallback. Because every stream
// folds through the same merge, the view converges no matter which path an
// update arrived on, and no matter in what order.
type Client struct {
	baseURL string
	token   string
	logger  *logger.Logger

	pollInterval time.Duration
	http         *http.Client

	mu       sync.Mutex
	view     View
	onChange func(View)
}

// Options configure a Client.
type Options struct {
	// BaseURL is the server's HTTP base, e.g. "http://localhost:8080".
	BaseURL string
	// Token is the bearer token identifying this user.
	Token string
	// PollInterval is the polling fallback cadence. Zero means 5s.
	PollInterval time.Duration
	// OnChange, if set, observes every new view snapshot.
	OnChange func(View)
	Logger   *logger.Logger
}

// New creates a room client.
func New(opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		logger:       log,
		pollInterval: opts.PollInterval,
		http:         &http.Client{Timeout: 15 * time.Second},
		view:         NewView(),
		onChange:     opts.OnChange,
	}
}

// View returns the current snapshot.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Dispatch folds an action into the view. Used internally for every incoming
// stream and externally for optimistic local writes (ToggleReaction,
// SetReplyingTo, SetMessageStatus).
func (c *Client) Dispatch(actions ...Action) View {
	c.mu.Lock()
	for _, a := range actions {
		c.view = Apply(c.view, a)
	}
	v := c.view
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(v)
	}
	return v
}

// Run hydrates, then keeps the push connection and the polling fallback
// alive until ctx is canceled. The websocket reconnects with exponential
// backoff; every (re)connection starts with sync:request so ephemeral
// presence state is never stale for the gap.
func (c *Client) Run(ctx context.Context) error {
	if err := c.hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	go c.pollLoop(ctx)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry forever

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := policy.NextBackOff()
		c.logger.Warn("websocket connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", wait),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// runConnection dials, resyncs, and consumes events until the connection
// breaks.
func (c *Client) runConnection(ctx context.Context) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	// Close the socket when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// Resync before trusting any incremental event.
	if err := conn.WriteJSON(model.Event{Type: model.EventSyncRequest}); err != nil {
		return fmt.Errorf("send sync:request: %w", err)
	}

	for {
		var event model.Event
		if err := conn.ReadJSON(&event); err != nil {
			return err
		}
		actions, err := ActionsForEvent(event)
		if err != nil {
			c.logger.Warn("ignoring undecodable event", zap.Error(err))
			continue
		}
		c.Dispatch(actions...)
	}
}

// hydrate bootstraps users and messages through the REST surface.
func (c *Client) hydrate(ctx context.Context) error {
	var users model.ListUsersResponse
	if err := c.get(ctx, "/api/v1/users", &users); err != nil {
		return err
	}
	var msgs model.ListMessagesResponse
	if err := c.get(ctx, "/api/v1/messages", &msgs); err != nil {
		return err
	}

	c.Dispatch(Hydrate{Users: users.Users, Messages: msgs.Messages})
	return nil
}

// pollLoop is the staleness backstop: the same list fetch as hydration,
// folded through the same UpsertMessages merge the push path uses.
func (c *Client) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Poll(ctx); err != nil {
				c.logger.Warn("poll failed", zap.Error(err))
			}
		}
	}
}

// Poll performs one polling fallback fetch.
func (c *Client) Poll(ctx context.Context) error {
	var resp model.ListMessagesResponse
	if err := c.get(ctx, "/api/v1/messages", &resp); err != nil {
		return err
	}
	c.Dispatch(
		UpsertUsers{Users: resp.Users},
		UpsertMessages{Messages: resp.Messages},
	)
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
