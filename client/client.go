// Package client talks to the challenge service: fetching a problem and
// submitting the resulting action log for scoring.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	golibslogger "github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/go-libs/retry"
	"github.com/google/uuid"

	"kitchen-challenge/kitchen"
)

const (
	httpTimeout = 5 * time.Second
	maxSeed     = uint64(1) << 63
)

// ErrTransport wraps failures reaching the challenge service at all
// (connection refused, DNS failure, repeated timeouts).
var ErrTransport = errors.New("client: transport error")

// ErrProtocol wraps responses the challenge service returned but that
// don't conform to the documented contract (bad status, missing header,
// malformed body).
var ErrProtocol = errors.New("client: protocol error")

// ChallengeProblem is the parsed response from requesting a new problem:
// the orders to run against the kitchen, plus the opaque id that must be
// echoed back when submitting the solution.
type ChallengeProblem struct {
	Orders []kitchen.Order
	TestID string
}

// Client is a thin, retrying HTTP client for the challenge service's two
// endpoints.
type Client struct {
	httpClient *http.Client
	endpoint   string
	auth       string
	log        golibslogger.ILogger
}

// New returns a Client that talks to endpoint, authenticating with auth.
// A nil log falls back to the package's default logger.
func New(endpoint, auth string, log golibslogger.ILogger) *Client {
	if log == nil {
		log = golibslogger.GetDefaultLogger()
	}
	return &Client{
		httpClient: &http.Client{},
		endpoint:   strings.TrimRight(endpoint, "/"),
		auth:       auth,
		log:        log,
	}
}

type wireOrder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Temp      string `json:"temp"`
	Price     uint64 `json:"price"`
	Freshness uint64 `json:"freshness"`
}

func (o wireOrder) toKitchenOrder() kitchen.Order {
	return kitchen.Order{ID: o.ID, Name: o.Name, Temp: kitchen.Temperature(o.Temp), Price: o.Price, Freshness: o.Freshness}
}

// Challenge requests a new problem. A seed of 0 asks this client to pick
// a random seed in [0, 2^63) itself, mirroring the "0 means random"
// convention the challenge service documents. A non-transient response
// (any status other than 200 that is below 500, a missing header, or an
// undecodable body)
// is returned as ErrProtocol and is not retried; connection-level
// failures and 5xx responses are retried with backoff.
func (c *Client) Challenge(ctx context.Context, name string, seed uint64) (ChallengeProblem, error) {
	if seed == 0 {
		seed = rand.Uint64N(maxSeed)
	}
	requestID := uuid.New().String()

	query := url.Values{}
	query.Set("seed", strconv.FormatUint(seed, 10))
	query.Set("auth", c.auth)
	if name != "" {
		query.Set("name", name)
	}
	reqURL := c.endpoint + "/interview/challenge/new?" + query.Encode()

	var problem ChallengeProblem
	var protocolErr error

	transportErr := retry.Do(ctx, func(ctx context.Context) error {
		protocolErr = nil

		reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("building challenge request: %w", err)
		}
		req.Header.Set("x-request-id", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("challenge service returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			protocolErr = fmt.Errorf("%w: unexpected status %d", ErrProtocol, resp.StatusCode)
			return nil
		}

		testID := resp.Header.Get("x-test-id")
		if testID == "" {
			protocolErr = fmt.Errorf("%w: missing x-test-id header", ErrProtocol)
			return nil
		}

		var orders []wireOrder
		if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
			protocolErr = fmt.Errorf("%w: decoding orders: %v", ErrProtocol, err)
			return nil
		}

		kitchenOrders := make([]kitchen.Order, len(orders))
		for i, o := range orders {
			kitchenOrders[i] = o.toKitchenOrder()
		}
		problem = ChallengeProblem{Orders: kitchenOrders, TestID: testID}
		return nil
	})

	if transportErr != nil {
		return ChallengeProblem{}, fmt.Errorf("%w: %v", ErrTransport, transportErr)
	}
	if protocolErr != nil {
		return ChallengeProblem{}, protocolErr
	}
	c.log.Infof("fetched challenge request_id=%s test_id=%s orders=%d", requestID, problem.TestID, len(problem.Orders))
	return problem, nil
}

type solveOptions struct {
	Rate uint64 `json:"rate"`
	Min  uint64 `json:"min"`
	Max  uint64 `json:"max"`
}

type wireAction struct {
	Timestamp uint64 `json:"timestamp"`
	ID        string `json:"id"`
	Action    string `json:"action"`
	Target    string `json:"target"`
}

type solveRequest struct {
	Options solveOptions `json:"options"`
	Actions []wireAction `json:"actions"`
}

// Solve submits the recorded action log for scoring, returning the
// service's scoring text verbatim. The same retry/protocol-error split
// as Challenge applies.
func (c *Client) Solve(ctx context.Context, testID string, rate, min, max time.Duration, actions []kitchen.Action) (string, error) {
	requestID := uuid.New().String()
	wireActions := make([]wireAction, len(actions))
	for i, a := range actions {
		wireActions[i] = wireAction{
			Timestamp: uint64(a.TimestampMicros),
			ID:        a.OrderID,
			Action:    string(a.Kind),
			Target:    string(a.Target),
		}
	}

	body, err := json.Marshal(solveRequest{
		Options: solveOptions{
			Rate: uint64(rate.Microseconds()),
			Min:  uint64(min.Microseconds()),
			Max:  uint64(max.Microseconds()),
		},
		Actions: wireActions,
	})
	if err != nil {
		return "", fmt.Errorf("encoding solve request: %w", err)
	}

	query := url.Values{}
	query.Set("auth", c.auth)
	reqURL := c.endpoint + "/interview/challenge/solve?" + query.Encode()

	var result string
	var protocolErr error

	transportErr := retry.Do(ctx, func(ctx context.Context) error {
		protocolErr = nil

		reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("building solve request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-test-id", testID)
		req.Header.Set("x-request-id", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("challenge service returned %d", resp.StatusCode)
		}

		text, err := io.ReadAll(resp.Body)
		if err != nil {
			protocolErr = fmt.Errorf("%w: reading solve response: %v", ErrProtocol, err)
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			protocolErr = fmt.Errorf("%w: unexpected status %d: %s", ErrProtocol, resp.StatusCode, text)
			return nil
		}

		result = string(text)
		return nil
	})

	if transportErr != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, transportErr)
	}
	if protocolErr != nil {
		return "", protocolErr
	}
	return result, nil
}
