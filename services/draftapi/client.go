// Package draftapi is a client of the Academia draft API.
package draftapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/autosave"
	"github.com/trezcool/academia/core/draft"
)

const (
	draftPath   = "/teacher/courses/{id}/draft"
	cleanupPath = "/teacher/courses/{id}/drafts/cleanup"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("draft api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 HTTPError.
func IsNotFound(err error) bool {
	herr, ok := err.(*HTTPError)
	return ok && herr.StatusCode == http.StatusNotFound
}

type Client struct {
	client *resty.Client
}

func New(conf core.ClientConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(conf.BaseURL, "/")).
		SetTimeout(conf.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "academia-draftsync")
	if conf.Token != "" {
		client.SetAuthToken(conf.Token)
	}
	return &Client{client: client}
}

type saveRequest struct {
	Data draft.Payload `json:"draft_data"`
	Type draft.Type    `json:"draft_type"`
}

func (c *Client) SaveDraft(ctx context.Context, courseID string, payload draft.Payload, typ draft.Type) (draft.SaveResult, error) {
	var res draft.SaveResult
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", courseID).
		SetBody(saveRequest{Data: payload, Type: typ}).
		SetResult(&res).
		Post(draftPath)
	if err != nil {
		return draft.SaveResult{}, err
	}
	if err = classifyResponse(resp); err != nil {
		return draft.SaveResult{}, err
	}
	return res, nil
}

func (c *Client) LatestDraft(ctx context.Context, courseID string) (draft.Latest, error) {
	var latest draft.Latest
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", courseID).
		SetResult(&latest).
		Get(draftPath)
	if err != nil {
		return draft.Latest{}, err
	}
	if err = classifyResponse(resp); err != nil {
		return draft.Latest{}, err
	}
	return latest, nil
}

func (c *Client) CleanupDrafts(ctx context.Context, courseID string) (draft.CleanupResult, error) {
	var res draft.CleanupResult
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", courseID).
		SetResult(&res).
		Delete(cleanupPath)
	if err != nil {
		return draft.CleanupResult{}, err
	}
	if err = classifyResponse(resp); err != nil {
		return draft.CleanupResult{}, err
	}
	return res, nil
}

// SaveFunc binds the client to a course so that it can back an autosave.Scheduler.
func (c *Client) SaveFunc(courseID string) autosave.SaveFunc {
	return func(ctx context.Context, payload draft.Payload, typ draft.Type) error {
		_, err := c.SaveDraft(ctx, courseID, payload, typ)
		return err
	}
}

func classifyResponse(resp *resty.Response) error {
	if !resp.IsError() && resp.StatusCode() < 300 {
		return nil
	}
	return &HTTPError{StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body())}
}

// errorMessage extracts `{"error": "..."}` messages; field errors and other bodies are kept verbatim.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
