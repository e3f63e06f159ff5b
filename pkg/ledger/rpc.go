package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/util/resiliency"
)

// Retry defaults for RPC calls.
const (
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
	DefaultMaxTries        = 4
	DefaultCommitment      = "confirmed"

	maxResponseBytes = 4 << 20
)

// ErrMalformedResponse is returned when the endpoint answers with something
// that is not a usable JSON-RPC response.
var ErrMalformedResponse = errors.New("ledger: malformed rpc response")

// RPCError is a non-success answer from the endpoint: either an HTTP status
// or a JSON-RPC error object.
type RPCError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc http status %d: %s", e.HTTPStatus, e.Message)
}

// Retryable reports whether the call may succeed if repeated: HTTP 429 and
// 5xx, and JSON-RPC server errors in -32099..-32000.
func (e *RPCError) Retryable() bool {
	if e.Code != 0 {
		return e.Code <= -32000 && e.Code >= -32099
	}
	return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= 500
}

// RPCClient reads accounts over Solana-style JSON-RPC. It is safe for
// concurrent use.
type RPCClient struct {
	endpoint   string
	commitment string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resiliency.CircuitBreaker
	logger     *slog.Logger

	initialInterval time.Duration
	maxInterval     time.Duration
	maxTries        uint

	nextID atomic.Uint64
}

type RPCOption func(*RPCClient)

func WithHTTPClient(c *http.Client) RPCOption {
	return func(r *RPCClient) { r.httpClient = c }
}

func WithCommitment(commitment string) RPCOption {
	return func(r *RPCClient) {
		if commitment != "" {
			r.commitment = commitment
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables it.
func WithRateLimit(rps float64, burst int) RPCOption {
	return func(r *RPCClient) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCircuitBreaker(cb *resiliency.CircuitBreaker) RPCOption {
	return func(r *RPCClient) { r.breaker = cb }
}

// WithRetry overrides the backoff schedule and the attempt limit.
func WithRetry(initial, max time.Duration, tries uint) RPCOption {
	return func(r *RPCClient) {
		r.initialInterval = initial
		r.maxInterval = max
		r.maxTries = tries
	}
}

func WithLogger(l *slog.Logger) RPCOption {
	return func(r *RPCClient) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRPCClient(endpoint string, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		endpoint:        endpoint,
		commitment:      DefaultCommitment,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		breaker:         resiliency.NewCircuitBreaker("ledger-rpc", 5, 10*time.Second),
		logger:          slog.Default().With("component", "ledger-rpc"),
		initialInterval: DefaultInitialInterval,
		maxInterval:     DefaultMaxInterval,
		maxTries:        DefaultMaxTries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the RPC URL the client talks to.
func (c *RPCClient) Endpoint() string {
	return c.endpoint
}

// Account is the subset of getAccountInfo the anchor reader uses.
type Account struct {
	Data     []byte
	Owner    pda.PublicKey
	Lamports uint64
	Slot     uint64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountInfoResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Data     []string      `json:"data"`
		Owner    pda.PublicKey `json:"owner"`
		Lamports uint64        `json:"lamports"`
	} `json:"value"`
}

// FetchAccount implements AccountFetcher.
func (c *RPCClient) FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
	acct, err := c.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, err
	}
	return acct.Data, nil
}

// GetAccountInfo fetches the account at addr with base64 encoding. A null
// value yields ErrAccountNotFound.
func (c *RPCClient) GetAccountInfo(ctx context.Context, addr pda.PublicKey) (*Account, error) {
	params := []any{
		addr.String(),
		map[string]string{"encoding": "base64", "commitment": c.commitment},
	}
	raw, err := c.call(ctx, "getAccountInfo", params)
	if err != nil {
		return nil, err
	}

	var res accountInfoResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: getAccountInfo result: %v", ErrMalformedResponse, err)
	}
	if res.Value == nil {
		return nil, ErrAccountNotFound
	}
	if len(res.Value.Data) != 2 || res.Value.Data[1] != "base64" {
		return nil, fmt.Errorf("%w: unexpected account data encoding", ErrMalformedResponse)
	}
	data, err := base64.StdEncoding.DecodeString(res.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: account data: %v", ErrMalformedResponse, err)
	}
	return &Account{
		Data:     data,
		Owner:    res.Value.Owner,
		Lamports: res.Value.Lamports,
		Slot:     res.Context.Slot,
	}, nil
}

// GetSlot returns the current slot at the configured commitment. Used as a
// health check.
func (c *RPCClient) GetSlot(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, "getSlot", []any{map[string]string{"commitment": c.commitment}})
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := json.Unmarshal(raw, &slot); err != nil {
		return 0, fmt.Errorf("%w: getSlot result: %v", ErrMalformedResponse, err)
	}
	return slot, nil
}

// call performs one JSON-RPC method with retries and returns the raw result.
func (c *RPCClient) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if c.breaker != nil {
		if err := c.breaker.Check(); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.Multiplier = 2

	result, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.attempt(ctx, body)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.WarnContext(ctx, "rpc call failed, retrying", "method", method, "error", err, "backoff", next)
		}),
	)

	c.settle(ctx, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// attempt sends one request. Errors that retrying cannot fix are wrapped
// with backoff.Permanent.
func (c *RPCClient) attempt(ctx context.Context, body []byte) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		rpcErr := &RPCError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if rpcErr.Retryable() {
			return nil, rpcErr
		}
		return nil, backoff.Permanent(rpcErr)
	}

	var rr rpcResponse
	if err := json.Unmarshal(payload, &rr); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if rr.Error != nil {
		rpcErr := &RPCError{HTTPStatus: resp.StatusCode, Code: rr.Error.Code, Message: rr.Error.Message}
		if rpcErr.Retryable() {
			return nil, rpcErr
		}
		return nil, backoff.Permanent(rpcErr)
	}
	if len(rr.Result) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("%w: missing result", ErrMalformedResponse))
	}
	return rr.Result, nil
}

// settle reports the outcome of a call to the breaker. Any answer from the
// endpoint, even a rejection, proves it reachable. Calls the caller
// abandoned say nothing about the endpoint and only free the trial slot.
func (c *RPCClient) settle(ctx context.Context, err error) {
	if c.breaker == nil {
		return
	}
	switch {
	case err == nil:
		c.breaker.Success()
	case ctx.Err() != nil:
		c.breaker.Release()
	case isTransient(err) || errors.Is(err, context.DeadlineExceeded):
		c.breaker.Failure()
	default:
		c.breaker.Success()
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, resiliency.ErrCircuitOpen) {
		return false
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Retryable()
	}
	return true
}
