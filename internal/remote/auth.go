package remote

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/chat"
	"github.com/pelusa-v/bearboo-letters/internal/models"
)

const requestTimeout = 15 * time.Second

// Client is the HTTP side of the server API. It also serves as the session's
// auth collaborator.
type Client struct {
	base string
	http *fasthttp.Client

	mu        sync.Mutex
	token     string
	user      *chat.Identity
	listeners map[int]func(*chat.Identity)
	next      int
}

func NewClient(base string) *Client {
	return &Client{
		base:      strings.TrimRight(base, "/"),
		http:      &fasthttp.Client{Name: "bearboo"},
		listeners: map[int]func(*chat.Identity){},
	}
}

func (c *Client) Base() string { return c.base }

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func deadline(ctx context.Context) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d)
	}
	return requestTimeout
}

// do sends one JSON request. Non-2xx replies become categorized errors carrying
// the server's public message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(method)
	if tok := c.Token(); tok != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+tok)
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, apperr.MsgTryAgain, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}
	if err := c.http.DoTimeout(req, resp, deadline(ctx)); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "Can't reach the server. Please try again.", err)
	}

	status := resp.StatusCode()
	if status >= 300 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(resp.Body(), &e) != nil || e.Error == "" {
			return apperr.ErrGeneric
		}
		return apperr.New(apperr.Code(e.Code), e.Error)
	}
	if out != nil && status != fasthttp.StatusNoContent {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return apperr.Wrap(apperr.CodeInternal, apperr.MsgTryAgain, err)
		}
	}
	return nil
}

type session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*chat.Identity, error) {
	var s session
	if err := c.do(ctx, fasthttp.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &s); err != nil {
		return nil, err
	}
	return c.signIn(s), nil
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*chat.Identity, error) {
	var s session
	if err := c.do(ctx, fasthttp.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": password, "displayName": displayName,
	}, &s); err != nil {
		return nil, err
	}
	return c.signIn(s), nil
}

// Logout revokes the token on the server. Local state is cleared even if the
// server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, fasthttp.MethodPost, "/api/auth/logout", nil, nil)
	c.set("", nil)
	return err
}

func (c *Client) signIn(s session) *chat.Identity {
	id := &chat.Identity{ID: s.User.ID, DisplayName: s.User.DisplayName}
	c.set(s.Token, id)
	return id
}

func (c *Client) CurrentUser() *chat.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Client) OnAuthChange(fn func(*chat.Identity)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) set(token string, u *chat.Identity) {
	c.mu.Lock()
	c.token = token
	c.user = u
	fns := make([]func(*chat.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}
