package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/gateway"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/pkg/api"
)

// DefaultTimeout таймаут одного HTTP запроса
const DefaultTimeout = 30 * time.Second

var _ gateway.RemoteGateway = (*Client)(nil)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option настраивает Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchCurrent получает текущую копию сущности
func (c *Client) FetchCurrent(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error) {
	var resp api.EntitySnapshot
	path := fmt.Sprintf("/api/v1/entities/%s/%s", url.PathEscape(entityType), url.PathEscape(entityID))

	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s/%s failed: %w", entityType, entityID, err)
	}

	return &models.EntitySnapshot{
		EntityType:     resp.EntityType,
		EntityID:       resp.EntityID,
		Version:        resp.Version,
		UpdatedAt:      resp.UpdatedAt,
		LastMutationID: resp.LastMutationID,
		Payload:        []byte(resp.Payload),
	}, nil
}

// Submit отправляет мутацию на сервер
func (c *Client) Submit(ctx context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	body := api.SubmitMutationRequest{
		MutationID:      req.MutationID,
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		Operation:       string(req.Operation),
		ExpectedVersion: req.ExpectedVersion,
	}
	if len(req.Payload) > 0 {
		body.Payload = json.RawMessage(req.Payload)
	}

	headers := map[string]string{api.IdempotencyKeyHeader: req.MutationID}

	var resp api.SubmitMutationResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/mutations", headers, body, &resp); err != nil {
		return nil, fmt.Errorf("submit mutation %s failed: %w", req.MutationID, err)
	}

	return &gateway.SubmitResult{
		NewVersion: resp.NewVersion,
		UpdatedAt:  resp.UpdatedAt,
		Replayed:   resp.Replayed,
	}, nil
}

// Ping проверяет доступность сервера
func (c *Client) Ping(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil, &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, headers map[string]string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("failed to read response body: %w", err))
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// transportError сводит ошибки транспорта к таксономии шлюза
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", gateway.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", gateway.ErrNetworkUnavailable, err)
}

// statusError сводит HTTP статус к таксономии шлюза
func statusError(status int, body []byte) error {
	msg := string(body)
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Message != "" || errResp.Error != "") {
		msg = errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
	}

	switch {
	case status == http.StatusNotFound:
		return gateway.ErrNotFound
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", gateway.ErrVersionConflict, msg)
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return gateway.Rejected(msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", gateway.ErrUnauthorized, msg)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: server status %d", gateway.ErrTimeout, status)
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: server status %d", gateway.ErrNetworkUnavailable, status)
	default:
		return fmt.Errorf("request failed with status %d: %s", status, msg)
	}
}
