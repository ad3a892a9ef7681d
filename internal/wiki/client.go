// Package wiki publishes page text through the MediaWiki action API.
package wiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultAPIURL  = "https://www.wikidata.org/w/api.php"
	defaultTimeout = 60 * time.Second
)

// Client is a logged-in session against one wiki. Login happens lazily on
// the first edit.
type Client struct {
	apiURL     string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
	loggedIn   bool
}

// NewClient creates a Client for the api.php endpoint at apiURL using a bot
// password for authentication.
func NewClient(apiURL, username, password, userAgent string) (*Client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		apiURL:    apiURL,
		username:  username,
		password:  password,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}, nil
}

// Edit replaces the full text of title. The edit is saved as a non-minor
// bot edit with summary as the edit comment.
func (c *Client) Edit(ctx context.Context, title, text, summary string) error {
	if !c.loggedIn {
		if err := c.login(ctx); err != nil {
			return err
		}
	}

	token, err := c.token(ctx, "csrf")
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "edit")
	form.Set("title", title)
	form.Set("text", text)
	form.Set("summary", summary)
	form.Set("notminor", "1")
	form.Set("bot", "1")
	form.Set("token", token)

	body, err := c.post(ctx, form)
	if err != nil {
		return fmt.Errorf("editing %s: %w", title, err)
	}
	if result := gjson.GetBytes(body, "edit.result").String(); result != "Success" {
		return fmt.Errorf("editing %s: result %q", title, result)
	}
	return nil
}

func (c *Client) login(ctx context.Context) error {
	token, err := c.token(ctx, "login")
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "login")
	form.Set("lgname", c.username)
	form.Set("lgpassword", c.password)
	form.Set("lgtoken", token)

	body, err := c.post(ctx, form)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	res := gjson.GetBytes(body, "login")
	if res.Get("result").String() != "Success" {
		return fmt.Errorf("logging in as %s: %s %s", c.username, res.Get("result").String(), res.Get("reason").String())
	}
	c.loggedIn = true
	return nil
}

func (c *Client) token(ctx context.Context, kind string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("meta", "tokens")
	q.Set("type", kind)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	body, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s token: %w", kind, err)
	}
	token := gjson.GetBytes(body, "query.tokens."+kind+"token").String()
	if token == "" {
		return "", fmt.Errorf("fetching %s token: empty token", kind)
	}
	return token, nil
}

func (c *Client) post(ctx context.Context, form url.Values) ([]byte, error) {
	form.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() {
		return nil, fmt.Errorf("api error %s: %s", apiErr.Get("code").String(), apiErr.Get("info").String())
	}
	return body, nil
}
