package eagle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is a typed client for the local Eagle HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client against baseURL, e.g. "http://localhost:41595/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// LibraryInfo fetches the current library's folder tree and metadata.
func (c *Client) LibraryInfo(ctx context.Context) (*LibraryInfo, error) {
	var out LibraryInfo
	if err := c.get(ctx, "/library/info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LibraryHistory fetches the paths of recently opened libraries.
func (c *Client) LibraryHistory(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "/library/history", &out); err != nil {
		return nil, err
	}
	// Eagle appends trailing separators to some entries; drop those.
	paths := out[:0]
	for _, p := range out {
		if !strings.HasSuffix(p, "/") {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// SwitchLibrary asks the Eagle app to open a different library.
func (c *Client) SwitchLibrary(ctx context.Context, libraryPath string) error {
	body, err := json.Marshal(map[string]string{"libraryPath": libraryPath})
	if err != nil {
		return err
	}
	return c.post(ctx, "/library/switch", body, nil)
}

// Items fetches a page of items matching params.
func (c *Client) Items(ctx context.Context, params SearchParams) ([]Item, error) {
	q := url.Values{}
	if params.Keyword != "" {
		q.Set("keyword", params.Keyword)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.OrderBy != "" {
		q.Set("orderBy", params.OrderBy)
	}
	if params.Ext != "" {
		q.Set("ext", params.Ext)
	}
	if len(params.Tags) > 0 {
		q.Set("tags", strings.Join(params.Tags, ","))
	}
	if len(params.Folders) > 0 {
		q.Set("folders", strings.Join(params.Folders, ","))
	}

	endpoint := "/item/list"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var out []Item
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ItemByID fetches one item.
func (c *Client) ItemByID(ctx context.Context, id string) (*Item, error) {
	var out Item
	if err := c.get(ctx, "/item/info?id="+url.QueryEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Folders fetches the flat folder list.
func (c *Client) Folders(ctx context.Context) ([]FolderNode, error) {
	var out []FolderNode
	if err := c.get(ctx, "/folder/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Thumbnail fetches the local path of an item's thumbnail file.
func (c *Client) Thumbnail(ctx context.Context, id string) (string, error) {
	var out string
	if err := c.get(ctx, "/item/thumbnail?id="+url.QueryEscape(id), &out); err != nil {
		return "", err
	}
	return out, nil
}

// OriginalPath resolves an item's original file path from its thumbnail path
// and extension.
func (c *Client) OriginalPath(ctx context.Context, id string) (string, error) {
	thumb, err := c.Thumbnail(ctx, id)
	if err != nil {
		return "", err
	}
	item, err := c.ItemByID(ctx, id)
	if err != nil {
		return "", err
	}
	return strings.Replace(thumb, "_thumbnail.png", "."+item.Ext, 1), nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, endpoint, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("eagle api %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	// Decode the envelope and payload in two passes so the data shape stays
	// caller-defined.
	var raw struct {
		apiEnvelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("eagle api %s: decode response: %w", endpoint, err)
	}

	if raw.Status == "error" {
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Code:       raw.ErrorCode,
			Message:    raw.Message,
		}
	}

	if out == nil || len(raw.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Data, out); err != nil {
		return fmt.Errorf("eagle api %s: decode data: %w", endpoint, err)
	}
	return nil
}
