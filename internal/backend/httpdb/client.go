/*
pwlookup - account and shadow database lookup diagnostic.
Copyright © 2019-2020 Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package httpdb implements account and shadow databases served by an HTTP
// API, in the format used by the nss_http NSS module:
//
//	GET <endpoint>/passwd?name=<user>  -> passwd JSON object
//	GET <endpoint>/passwd              -> array of passwd objects
//	GET <endpoint>/shadow?name=<user>  -> shadow JSON object
//	GET <endpoint>/shadow              -> array of shadow objects
//
// 404 means there is no such entry.
package httpdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultTimeout matches NSS_HTTP_API_REQUEST_TIMEOUT default.
const DefaultTimeout = 30 * time.Second

var errNotFound = errors.New("httpdb: entry not found")

type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger

	// Reports whether shadow requests are permitted. Replaced in tests.
	shadowAllowed func() bool
}

// New creates a Client for the API rooted at endpoint.
func New(endpoint string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("httpdb: endpoint is not set")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("httpdb: malformed endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpdb: unsupported endpoint scheme: %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		endpoint:      strings.TrimSuffix(endpoint, "/"),
		http:          &http.Client{Timeout: timeout},
		log:           log,
		shadowAllowed: executableIsSetuid,
	}, nil
}

func (c *Client) requestURL(file, key, value string) string {
	if key == "" {
		return c.endpoint + "/" + file
	}
	return c.endpoint + "/" + file + "?" + url.Values{key: {value}}.Encode()
}

// get performs the request and decodes JSON response into out.
//
// Following nss_http behavior, any non-200 response, unusable body or
// transport error is reported as a missing entry (after being logged), only
// timeouts are kept as (temporary) errors.
func (c *Client) get(ctx context.Context, file, key, value string, out interface{}) error {
	reqURL := c.requestURL(file, key, value)
	reqID := uuid.NewString()
	log := c.log.With(zap.String("url", reqURL), zap.String("request_id", reqID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("httpdb: %w", err)
	}
	req.Header.Set("X-UID", strconv.Itoa(unix.Getuid()))
	req.Header.Set("X-GID", strconv.Itoa(unix.Getgid()))
	req.Header.Set("X-PID", strconv.Itoa(unix.Getpid()))
	req.Header.Set("X-PPID", strconv.Itoa(unix.Getppid()))
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")

	log.Debug("requesting")
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			log.Debug("request timed out", zap.Error(err))
			return exterrors.WithErrno(
				exterrors.WithTemporary(fmt.Errorf("httpdb: %s: %w", file, err), true),
				syscall.EAGAIN)
		}
		log.Debug("request failed", zap.Error(err))
		return errNotFound
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Debug("got 404")
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		log.Debug("unexpected status", zap.Int("status", resp.StatusCode))
		return errNotFound
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Debug("malformed response", zap.Error(err))
		return errNotFound
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Accounts returns the account database view of c.
func (c *Client) Accounts() *AccountDB {
	return &AccountDB{c: c}
}

// Shadow returns the shadow database view of c.
func (c *Client) Shadow() *ShadowDB {
	return &ShadowDB{c: c}
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
