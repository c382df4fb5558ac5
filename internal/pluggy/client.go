// Package pluggy provides a client for the Pluggy open-banking aggregator API.
package pluggy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
)

// apiKeyLifetime is how long an exchanged API key is trusted before the
// client re-authenticates. Pluggy keys expire after two hours; renewing
// early avoids racing the deadline mid-sync.
const apiKeyLifetime = 90 * time.Minute

// Config holds Pluggy API configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // defaults to the production API
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("pluggy client ID is required: %w", common.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("pluggy client secret is required: %w", common.ErrMissingConfig)
	}
	return nil
}

// Client implements the service.BankClient interface against the Pluggy REST API.
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	retryOpts    *service.RetryOptions
	baseURL      string
	clientID     string
	clientSecret string

	mu           sync.Mutex
	apiKey       string
	apiKeyExpiry time.Time
}

// NewClient creates a new Pluggy client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.pluggy.ai"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       slog.Default().With("component", "pluggy"),
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Pluggy API response types.
type authResponse struct {
	APIKey string `json:"apiKey"`
}

type accountsResponse struct {
	Results []pluggyAccount `json:"results"`
}

type pluggyAccount struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	CurrencyCode string  `json:"currencyCode"`
	Balance      float64 `json:"balance"`
}

type transactionsResponse struct {
	Results    []pluggyTransaction `json:"results"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	Total      int                 `json:"total"`
}

type pluggyTransaction struct {
	ID             string  `json:"id"`
	Description    string  `json:"description"`
	DescriptionRaw string  `json:"descriptionRaw"`
	Date           string  `json:"date"`
	Category       string  `json:"category"`
	Type           string  `json:"type"` // DEBIT or CREDIT
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Merchant       *struct {
		Name string `json:"name"`
	} `json:"merchant"`
}

// GetAccounts fetches the accounts belonging to one item (bank connection).
func (c *Client) GetAccounts(ctx context.Context, itemID string) ([]service.BankAccount, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if itemID == "" {
		return nil, fmt.Errorf("item ID cannot be empty")
	}

	c.logger.Info("Fetching accounts from Pluggy", "item_id", itemID)

	var resp accountsResponse
	retryErr := common.WithRetry(ctx, func() error {
		query := url.Values{"itemId": {itemID}}
		return c.get(ctx, "/accounts", query, &resp)
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	accounts := make([]service.BankAccount, 0, len(resp.Results))
	for _, a := range resp.Results {
		accounts = append(accounts, service.BankAccount{
			ExternalID: a.ID,
			Name:       a.Name,
			Type:       a.Type,
			Currency:   a.CurrencyCode,
			Balance:    a.Balance,
		})
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))

	return accounts, nil
}

// GetTransactions fetches all posted transactions for an account within the
// date window, following Pluggy's pagination. The returned transactions carry
// the provider identifiers; the caller assigns the internal account ID.
func (c *Client) GetTransactions(ctx context.Context, accountExternalID string, startDate, endDate time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if accountExternalID == "" {
		return nil, fmt.Errorf("account external ID cannot be empty")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Pluggy",
		"account", accountExternalID,
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	const pageSize = 500
	var all []pluggyTransaction

	for page := 1; ; page++ {
		var resp transactionsResponse

		retryErr := common.WithRetry(ctx, func() error {
			query := url.Values{
				"accountId": {accountExternalID},
				"from":      {startDate.Format("2006-01-02")},
				"to":        {endDate.Format("2006-01-02")},
				"page":      {fmt.Sprintf("%d", page)},
				"pageSize":  {fmt.Sprintf("%d", pageSize)},
			}
			return c.get(ctx, "/transactions", query, &resp)
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		all = append(all, resp.Results...)

		c.logger.Debug("Fetched transaction page",
			"page", page,
			"count", len(resp.Results),
			"total", resp.Total)

		if page >= resp.TotalPages || len(resp.Results) == 0 {
			break
		}
	}

	c.logger.Info("Fetched all transactions", "count", len(all))

	transactions := make([]model.Transaction, 0, len(all))
	for _, pt := range all {
		// Pending transactions are not stable yet; they are picked up on a
		// later sync once posted.
		if strings.EqualFold(pt.Status, "PENDING") {
			continue
		}
		transactions = append(transactions, c.mapTransaction(pt))
	}

	return transactions, nil
}

// mapTransaction converts a Pluggy transaction to our internal model.
func (c *Client) mapTransaction(pt pluggyTransaction) model.Transaction {
	date, err := time.Parse(time.RFC3339, pt.Date)
	if err != nil {
		// Some endpoints return date-only strings
		date, err = time.Parse("2006-01-02", pt.Date)
		if err != nil {
			c.logger.Error("Failed to parse transaction date", "date", pt.Date, "error", err)
			date = time.Now()
		}
	}

	description := pt.Description
	if description == "" {
		description = pt.DescriptionRaw
	}

	merchantName := ""
	if pt.Merchant != nil {
		merchantName = pt.Merchant.Name
	}
	if merchantName == "" {
		merchantName = description
	}
	merchantName = CleanMerchantName(merchantName)

	// Debits are stored as negative amounts
	amount := pt.Amount
	if strings.EqualFold(pt.Type, "DEBIT") && amount > 0 {
		amount = -amount
	}

	return model.Transaction{
		ExternalID:       pt.ID,
		Date:             date,
		Description:      description,
		MerchantName:     merchantName,
		ProviderCategory: pt.Category,
		Amount:           amount,
	}
}

// get performs an authenticated GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	apiKey, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrConnection, err),
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		if isAuthStatus(resp.StatusCode) {
			c.invalidateKey()
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// authenticate exchanges the client credentials for a short-lived API key,
// reusing a cached key while it remains fresh.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.apiKey != "" && time.Now().Before(c.apiKeyExpiry) {
		return c.apiKey, nil
	}

	body, err := json.Marshal(map[string]string{
		"clientId":     c.clientID,
		"clientSecret": c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrConnection, err),
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isAuthStatus(resp.StatusCode) {
			return "", fmt.Errorf("%w: auth rejected: %s", common.ErrAuthExpired, strings.TrimSpace(string(raw)))
		}
		return "", classifyStatusCode(resp.StatusCode, raw)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if auth.APIKey == "" {
		return "", fmt.Errorf("%w: empty api key in auth response", common.ErrAuthExpired)
	}

	c.apiKey = auth.APIKey
	c.apiKeyExpiry = time.Now().Add(apiKeyLifetime)
	c.logger.Debug("Exchanged Pluggy credentials for API key")

	return c.apiKey, nil
}

func (c *Client) invalidateKey() {
	c.mu.Lock()
	c.apiKey = ""
	c.mu.Unlock()
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// classifyStatus maps HTTP failures into the application error taxonomy.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classifyStatusCode(resp.StatusCode, raw)
}

func classifyStatusCode(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case code == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrRateLimit, msg),
			Retryable: true,
		}
	case isAuthStatus(code):
		// Terminal: the user must re-authenticate with the bank
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrAuthExpired, msg),
			Retryable: false,
		}
	case code >= 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: pluggy API error %d: %s", common.ErrConnection, code, msg),
			Retryable: true,
		}
	default:
		return fmt.Errorf("pluggy API error %d: %s", code, msg)
	}
}

// Ensure Client implements the BankClient interface.
var _ service.BankClient = (*Client)(nil)
