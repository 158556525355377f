package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/herdlog/internal/config"
)

// Cloud API limits for interactive list messages.
const (
	MaxListRows        = 10
	maxRowTitleLength  = 24
	maxButtonLength    = 20
	maxRowDescLength   = 72
	defaultListSection = "Options"
)

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
	SendListMessage(ctx context.Context, req SendListMessageRequest) (*SendTextMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AccessToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// ListOption is one selectable row of a list message. ID comes back in the list reply.
type ListOption struct {
	ID          string
	Title       string
	Description string
}

// SendListMessageRequest is an interactive list: a body, a button opening the list, and the rows.
type SendListMessageRequest struct {
	To      string
	Body    string
	Button  string
	Options []ListOption
}

// SendTextMessageResponse mirrors the successful response from Meta.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError represents a WhatsApp Cloud API error payload.
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorData    any    `json:"error_data"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "text",
		"text": map[string]any{
			"body":        req.Body,
			"preview_url": req.PreviewURL,
		},
	}
	return c.post(ctx, payload)
}

// SendListMessage sends an interactive list. Rows beyond MaxListRows are dropped and titles are
// truncated to the Cloud API limits.
func (c *APIClient) SendListMessage(ctx context.Context, req SendListMessageRequest) (*SendTextMessageResponse, error) {
	if len(req.Options) == 0 {
		return nil, fmt.Errorf("list message to %s has no options", req.To)
	}
	button := req.Button
	if button == "" {
		button = "Choisir / Choose"
	}

	options := req.Options
	if len(options) > MaxListRows {
		options = options[:MaxListRows]
	}
	rows := make([]map[string]any, 0, len(options))
	for _, o := range options {
		row := map[string]any{
			"id":    o.ID,
			"title": truncate(o.Title, maxRowTitleLength),
		}
		if o.Description != "" {
			row["description"] = truncate(o.Description, maxRowDescLength)
		}
		rows = append(rows, row)
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "list",
			"body": map[string]any{"text": req.Body},
			"action": map[string]any{
				"button": truncate(button, maxButtonLength),
				"sections": []map[string]any{{
					"title": defaultListSection,
					"rows":  rows,
				}},
			},
		},
	}
	return c.post(ctx, payload)
}

func (c *APIClient) post(ctx context.Context, payload map[string]any) (*SendTextMessageResponse, error) {
	result := new(SendTextMessageResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message
		code := resp.StatusCode()
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
		return nil, fmt.Errorf("whatsapp api error: code=%d, message=%s", code, message)
	}

	return result, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
