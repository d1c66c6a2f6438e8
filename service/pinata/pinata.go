package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/util"
)

const (
	defaultUploadBaseURL = "https://uploads.pinata.cloud"
	defaultAPIBaseURL    = "https://api.pinata.cloud"
)

// UploadOptions control how a file is pinned
type UploadOptions struct {
	MimeType  string
	Name      string
	Network   string
	GroupID   string
	KeyValues map[string]string
}

// SignOptions control a client-side signed upload URL
type SignOptions struct {
	Network       string
	ExpiresSecond int
	Filename      string
	GroupID       string
}

// FileInfo is the pinning service's record of a pinned file
type FileInfo struct {
	ID        string `json:"id"`
	CID       string `json:"cid"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

type uploadResponse struct {
	Data struct {
		CID string `json:"cid"`
	} `json:"data"`
}

type fileInfoResponse struct {
	Data FileInfo `json:"data"`
}

type signResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Client talks to the pinata v3 pinning API with bearer-JWT auth
type Client struct {
	jwt           string
	uploadBaseURL string
	apiBaseURL    string
	httpClient    *http.Client
}

// NewClient creates a pinning client from the PINATA_JWT environment variable
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		jwt:           env.MustGetString("PINATA_JWT"),
		uploadBaseURL: defaultUploadBaseURL,
		apiBaseURL:    defaultAPIBaseURL,
		httpClient:    httpClient,
	}
}

// NewClientWithURLs creates a pinning client against explicit base URLs
func NewClientWithURLs(jwt, uploadBaseURL, apiBaseURL string, httpClient *http.Client) *Client {
	return &Client{jwt: jwt, uploadBaseURL: uploadBaseURL, apiBaseURL: apiBaseURL, httpClient: httpClient}
}

// UploadFile pins the given file content and returns its CID
func (c *Client) UploadFile(ctx context.Context, fileData io.Reader, filename string, opts UploadOptions) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, fileData); err != nil {
		return "", err
	}

	network := opts.Network
	if network == "" {
		network = "public"
	}
	form.WriteField("network", network)
	if opts.Name != "" {
		form.WriteField("name", opts.Name)
	}
	if len(opts.KeyValues) > 0 {
		kv, err := json.Marshal(opts.KeyValues)
		if err != nil {
			return "", err
		}
		form.WriteField("keyvalues", string(kv))
	}
	if opts.GroupID != "" {
		form.WriteField("group_id", opts.GroupID)
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBaseURL+"/v3/files", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	var result uploadResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.Data.CID == "" {
		return "", fmt.Errorf("pinning service returned no cid for %s", filename)
	}
	return result.Data.CID, nil
}

// UploadJSON pins the given value serialized as a .json file
func (c *Client) UploadJSON(ctx context.Context, v interface{}, name string, opts UploadOptions) (string, error) {
	if name == "" {
		name = fmt.Sprintf("upload-%d", time.Now().UnixMilli())
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	filename := name + ".json"
	opts.MimeType = "application/json"
	opts.Name = filename
	return c.UploadFile(ctx, bytes.NewReader(data), filename, opts)
}

// FileInfo returns the pinning record for the given CID
func (c *Client) FileInfo(ctx context.Context, cid, network string) (FileInfo, error) {
	if network == "" {
		network = "public"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v3/files/%s/%s", c.apiBaseURL, network, cid), nil)
	if err != nil {
		return FileInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	var result fileInfoResponse
	if err := c.do(req, &result); err != nil {
		return FileInfo{}, err
	}
	return result.Data, nil
}

// SignedUploadURL creates a short-lived URL a client can upload through directly
func (c *Client) SignedUploadURL(ctx context.Context, opts SignOptions) (string, error) {
	if opts.Network == "" {
		opts.Network = "public"
	}
	if opts.ExpiresSecond <= 0 {
		opts.ExpiresSecond = 30
	}
	if opts.Filename == "" {
		opts.Filename = fmt.Sprintf("upload-%d", time.Now().UnixMilli())
	}

	payload, err := json.Marshal(map[string]interface{}{
		"network":  opts.Network,
		"expires":  opts.ExpiresSecond,
		"filename": opts.Filename,
		"group_id": orNil(opts.GroupID),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBaseURL+"/v3/files/sign", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	var result signResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("pinning service returned no signed url")
	}
	return result.Data.URL, nil
}

// TestAuthentication verifies the configured JWT against the API
func (c *Client) TestAuthentication(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/v3/files/public?limit=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	return c.do(req, &json.RawMessage{})
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pinning service request failed: %w", util.GetErrFromResp(resp))
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func orNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
