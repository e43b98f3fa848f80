package artifact

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrNotFound = errors.New("artifact not found")

// Client reads artifacts from a site published elsewhere.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Articles(ctx context.Context) ([]ArticleEntry, error) {
	var out []ArticleEntry
	err := c.get(ctx, "/data/articles.json", &out)
	return out, err
}

func (c *Client) Article(ctx context.Context, name string) (Article, error) {
	var out Article
	err := c.get(ctx, "/data/articles/"+url.PathEscape(name)+".json", &out)
	return out, err
}

func (c *Client) Themes(ctx context.Context) (ThemeIndex, error) {
	var out ThemeIndex
	err := c.get(ctx, "/data/themes.json", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	u := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "artifact: request %s", u)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "artifact: fetch %s", u)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "%s", u)
	case resp.StatusCode != http.StatusOK:
		return errors.Newf("artifact: fetch %s: status %d", u, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return errors.Wrapf(err, "artifact: read %s", u)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrapf(err, "artifact: decode %s", u)
	}
	return nil
}
