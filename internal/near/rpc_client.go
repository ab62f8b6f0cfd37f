package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"balance-history/internal/numeric"
	"balance-history/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithRateLimit caps outgoing requests at rps per second. Zero or negative
// rps disables the limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new NEAR RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Inf, 0),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// statusError is a non-200 HTTP response without a JSON-RPC error body.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err != nil {
			observability.RecordRPCError(method, errorCause(err))
		}
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		rpcResp, err := c.do(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var se *statusError
			if errors.As(err, &se) && !se.transient() {
				return err
			}
			lastErr = err
			continue
		}

		if rpcResp.Error != nil {
			if rpcResp.Error.Transient() {
				lastErr = rpcResp.Error
				continue
			}
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: %s: max retries exceeded: %w", ErrUnavailable, method, lastErr)
}

// do sends one request. A non-200 response carrying a JSON-RPC error is
// returned as a response, so its cause decides whether to retry.
func (c *HTTPClient) do(ctx context.Context, body []byte) (*rpcResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(respBody, &rpcResp) == nil && rpcResp.Error != nil {
			return &rpcResp, nil
		}
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &rpcResp, nil
}

// errorCause labels err for the RPC error metric.
func errorCause(err error) string {
	var rpcErr *RPCError
	var se *statusError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case errors.As(err, &rpcErr):
		if name := rpcErr.CauseName(); name != "" {
			return name
		}
		return "rpc_error"
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.code)
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "transport"
	}
}

// CallFunction runs a view method of contract. args are JSON encoded and
// sent as args_base64.
func (c *HTTPClient) CallFunction(ctx context.Context, contract, method string, args interface{}, block BlockRef) (*CallResult, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	params := map[string]interface{}{
		"request_type": "call_function",
		"account_id":   contract,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(encoded),
	}
	block.params(params)

	var result callFunctionResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, err
	}

	// Older nodes report execution failures inside the result.
	if result.Error != "" {
		return nil, &ChainQueryError{
			Kind:     KindContractExecution,
			Contract: contract,
			Block:    block.String(),
			Message:  result.Error,
		}
	}

	raw := make([]byte, len(result.Result))
	for i, b := range result.Result {
		if b < 0 || b > 255 {
			return nil, &ChainQueryError{
				Kind:     KindMalformedResult,
				Contract: contract,
				Block:    block.String(),
				Message:  fmt.Sprintf("result byte %d out of range", b),
			}
		}
		raw[i] = byte(b)
	}

	return &CallResult{
		Result:      raw,
		Logs:        result.Logs,
		BlockHeight: result.BlockHeight,
		BlockHash:   result.BlockHash,
	}, nil
}

// callFunctionResult is the raw RPC response for query/call_function.
// result is a JSON array of byte values, not base64.
type callFunctionResult struct {
	Result      []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	Error       string   `json:"error,omitempty"`
}

// Block retrieves a block header.
func (c *HTTPClient) Block(ctx context.Context, block BlockRef) (*BlockHeader, error) {
	params := make(map[string]interface{}, 1)
	block.params(params)

	var result getBlockResult
	if err := c.call(ctx, "block", params, &result); err != nil {
		return nil, err
	}

	timestamp, err := numeric.ToUint64(result.Header.TimestampNanosec)
	if err != nil {
		return nil, fmt.Errorf("block %s timestamp: %w", block, err)
	}

	return &BlockHeader{
		Height:    result.Header.Height,
		Timestamp: timestamp,
		Hash:      result.Header.Hash,
		PrevHash:  result.Header.PrevHash,
	}, nil
}

// getBlockResult is the raw RPC response for block.
type getBlockResult struct {
	Header struct {
		Height           uint64 `json:"height"`
		TimestampNanosec string `json:"timestamp_nanosec"`
		Hash             string `json:"hash"`
		PrevHash         string `json:"prev_hash"`
	} `json:"header"`
}
