package registry

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultNTABaseURL is the National Tax Agency qualified invoice issuer API
const DefaultNTABaseURL = "https://web-api.invoice-kohyo.nta.go.jp"

// NTAClient implements Fetcher using the NTA web API
type NTAClient struct {
	baseURL string
	appID   string
	client  *http.Client
}

// NewNTAClient creates a new NTA API client
func NewNTAClient(baseURL, appID string) (*NTAClient, error) {
	if appID == "" {
		return nil, fmt.Errorf("nta application id is required")
	}
	if baseURL == "" {
		baseURL = DefaultNTABaseURL
	}
	return &NTAClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		appID:   appID,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// FetchIssuerName looks a registration number up, asking for the XML
// response without history. The number is sent with its T prefix.
func (c *NTAClient) FetchIssuerName(ctx context.Context, registrationNumber string) (string, error) {
	q := url.Values{}
	q.Set("id", c.appID)
	q.Set("number", "T"+strings.TrimPrefix(registrationNumber, "T"))
	q.Set("type", "21")
	q.Set("history", "0")
	endpoint := fmt.Sprintf("%s/1/num?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling NTA API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("NTA API error (status %d): %s", resp.StatusCode, string(body))
	}

	name, err := firstName(resp.Body)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// firstName returns the text of the first <name> element in an XML document
func firstName(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("decoding NTA response: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "name" {
			continue
		}
		var name string
		if err := dec.DecodeElement(&name, &start); err != nil {
			return "", fmt.Errorf("decoding NTA name: %w", err)
		}
		return strings.TrimSpace(name), nil
	}
}
