package store

import (
	"fmt"
	"net/http"
	"strings"
)

// HTTP is a Store backed by GET requests against a base URL. A 404
// response is reported as ErrNotFound; any other non-2xx status or
// transport error is a StoreError per spec.
type HTTP struct {
	base   string
	client *http.Client
}

var _ Store = (*HTTP)(nil)

// NewHTTP returns a Store that issues GETs under baseURL. A nil client
// falls back to http.DefaultClient.
func NewHTTP(baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (h *HTTP) Get(key string) ([]byte, error) {
	url := h.base + "/" + strings.TrimLeft(key, "/")
	resp, err := h.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("store: http GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("store: http GET %s: status %d", url, resp.StatusCode)
	}
	data, err := readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: http GET %s: reading body: %w", url, err)
	}
	return data, nil
}

func (h *HTTP) Resolve(key string) Store {
	return &HTTP{base: h.base + "/" + strings.TrimLeft(key, "/"), client: h.client}
}

func (h *HTTP) Identity() string {
	return h.base
}
