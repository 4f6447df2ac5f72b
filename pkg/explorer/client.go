// Package explorer talks to an Etherscan-compatible block explorer API for
// the data a node cannot serve: full address transaction history and
// contract source verification. Every call is scoped to one network's
// explorer endpoint.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/internal/constants"
)

// ErrNotConfigured is returned when the network has no explorer endpoint
var ErrNotConfigured = errors.New("no explorer configured for network")

// Client queries one explorer endpoint
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates an explorer client for the given API base URL
func New(baseURL string, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: constants.DefaultExplorerTimeout},
		logger:  logger,
	}, nil
}

// envelope is the Etherscan-style response wrapper. Result stays raw because
// its shape depends on the action: an array for lists, a string for
// verification handles.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// HistoryEntry is one transaction in an address's history
type HistoryEntry struct {
	Hash        string `json:"hash"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	GasUsed     string `json:"gasUsed"`
	IsError     string `json:"isError"`
	Input       string `json:"input"`
}

// AddressHistory returns up to limit transactions involving the address,
// newest first
func (c *Client) AddressHistory(ctx context.Context, address string, limit int) ([]HistoryEntry, error) {
	params := url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {address},
		"sort":    {"desc"},
		"page":    {"1"},
		"offset":  {strconv.Itoa(limit)},
	}

	result, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(result, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode transaction list: %w", err)
	}
	return entries, nil
}

// VerifyRequest holds a contract source verification submission
type VerifyRequest struct {
	Address          string
	SourceCode       string
	ContractName     string
	CompilerVersion  string
	OptimizationUsed bool
	OptimizationRuns int
	ConstructorArgs  string
}

// SubmitVerification submits contract source for verification and returns
// the explorer's tracking handle
func (c *Client) SubmitVerification(ctx context.Context, req VerifyRequest) (string, error) {
	optimization := "0"
	if req.OptimizationUsed {
		optimization = "1"
	}

	form := url.Values{
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"contractaddress":       {req.Address},
		"sourceCode":            {req.SourceCode},
		"contractname":          {req.ContractName},
		"compilerversion":       {req.CompilerVersion},
		"optimizationUsed":      {optimization},
		"runs":                  {strconv.Itoa(req.OptimizationRuns)},
		"constructorArguements": {req.ConstructorArgs}, // API-mandated spelling
	}

	resp, err := c.http.PostForm(c.baseURL+"/api", form)
	if err != nil {
		return "", fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	env, err := decode(resp)
	if err != nil {
		return "", err
	}
	if env.Status != "1" {
		return "", fmt.Errorf("verification rejected: %s", env.Message)
	}

	var guid string
	if err := json.Unmarshal(env.Result, &guid); err != nil {
		return "", fmt.Errorf("failed to decode verification handle: %w", err)
	}

	c.logger.Info("verification submitted",
		zap.String("address", req.Address),
		zap.String("guid", guid))
	return guid, nil
}

// VerificationStatus is a point-in-time verification state
type VerificationStatus struct {
	GUID    string `json:"guid"`
	Pending bool   `json:"pending"`
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// CheckVerification returns the current state of a verification submission
func (c *Client) CheckVerification(ctx context.Context, guid string) (*VerificationStatus, error) {
	params := url.Values{
		"module": {"contract"},
		"action": {"checkverifystatus"},
		"guid":   {guid},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	env, err := decode(resp)
	if err != nil {
		return nil, err
	}

	var detail string
	if err := json.Unmarshal(env.Result, &detail); err != nil {
		detail = string(env.Result)
	}

	status := &VerificationStatus{GUID: guid, Detail: detail}
	switch {
	case strings.Contains(detail, "Pending"):
		status.Pending = true
	case env.Status == "1":
		status.Success = true
	}
	return status, nil
}

// get performs one GET round trip and unwraps the envelope
func (c *Client) get(ctx context.Context, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	env, err := decode(resp)
	if err != nil {
		return nil, err
	}

	// Status 0 with "No transactions found" is an empty result, not a failure
	if env.Status != "1" && !strings.Contains(env.Message, "No transactions found") {
		return nil, fmt.Errorf("explorer error: %s", env.Message)
	}
	return env.Result, nil
}

func decode(resp *http.Response) (*envelope, error) {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("explorer returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}
	return &env, nil
}
