// Package hnap implements the subset of the D-Link HNAP protocol needed to
// poll DCH-S150 motion and DCH-S160 water leak sensors over the local network.
//
// The authentication scheme is the one shipped in device firmware: a
// challenge/response login deriving a private key from the device public key
// and the account PIN (HMAC-MD5, uppercase hex), then a per-call HNAP_AUTH
// header signing the timestamp and SOAP action with that key.
package hnap

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	actionLogin = "Login"

	// DefaultTimeout bounds a single HNAP round trip. Not to be confused
	// with the motion debounce timeout, which is a sensor setting.
	DefaultTimeout = 10 * time.Second
)

// Client speaks HNAP to a single device endpoint. It owns the session state
// (private key + cookie) exclusively; it is not safe for concurrent use.
type Client struct {
	endpoint string
	username string
	password string
	http     *http.Client
	logger   *zap.Logger

	privateKey string
	cookie     string
}

func NewClient(host, username, password string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: fmt.Sprintf("http://%s/HNAP1", host),
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With(zap.String("endpoint", host)),
	}
}

func hmacMD5Hex(key, message string) string {
	mac := hmac.New(md5.New, []byte(key))
	mac.Write([]byte(message))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Login performs the two-phase challenge/response handshake and stores the
// resulting session. Returns *AuthError on bad credentials or a malformed
// exchange, *ConnectionError on transport failure.
func (c *Client) Login(ctx context.Context) error {
	c.Reset()

	c.logger.Debug("hnap: logging into device")
	resp, err := c.do(ctx, actionLogin, map[string]string{
		"Action":        "request",
		"Username":      c.username,
		"LoginPassword": "",
		"Captcha":       "",
	})
	if err != nil {
		return err
	}

	challenge := resp.Get("Challenge")
	publicKey := resp.Get("PublicKey")
	cookie := resp.Get("Cookie")
	if challenge == "" || publicKey == "" || cookie == "" {
		return &AuthError{Reason: "malformed login challenge"}
	}
	c.cookie = cookie
	c.privateKey = hmacMD5Hex(publicKey+c.password, challenge)

	loginPassword := hmacMD5Hex(c.privateKey, challenge)
	resp, err = c.do(ctx, actionLogin, map[string]string{
		"Action":        "login",
		"Username":      c.username,
		"LoginPassword": loginPassword,
		"Captcha":       "",
	})
	if err != nil {
		c.Reset()
		var perr *ProtocolError
		if errors.As(err, &perr) {
			return &AuthError{Reason: "bad response from device"}
		}
		return err
	}
	if !strings.EqualFold(resp.Get("LoginResult"), "success") {
		c.Reset()
		return &AuthError{Reason: "incorrect username or password"}
	}
	c.logger.Debug("hnap: login ok")
	return nil
}

// Call executes an authenticated HNAP action, logging in first if there is no
// session yet. If the device rejects the session token, exactly one
// re-login-and-retry is performed before the failure surfaces.
func (c *Client) Call(ctx context.Context, action string, params map[string]string) (Values, error) {
	if c.privateKey == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}
	vals, err := c.callOnce(ctx, action, params)
	if errors.Is(err, ErrSessionExpired) {
		c.logger.Debug("hnap: session rejected, logging in again", zap.String("action", action))
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.callOnce(ctx, action, params)
	}
	return vals, err
}

// Reset drops the session state. The next Call will login again.
func (c *Client) Reset() {
	c.privateKey = ""
	c.cookie = ""
}

func (c *Client) callOnce(ctx context.Context, action string, params map[string]string) (Values, error) {
	vals, err := c.do(ctx, action, params)
	if err != nil {
		return nil, err
	}
	if vals.hasErrorResult() {
		c.Reset()
		return nil, ErrSessionExpired
	}
	return vals, nil
}

// do performs one SOAP round trip. The HNAP_AUTH header is attached whenever
// a private key exists, matching firmware expectations for every action after
// the first login phase.
func (c *Client) do(ctx context.Context, action string, params map[string]string) (Values, error) {
	body := buildEnvelope(action, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s%s"`, ActionBaseURL, action))
	if c.cookie != "" {
		req.Header.Set("Cookie", fmt.Sprintf("uid=%s", c.cookie))
	}
	if c.privateKey != "" {
		ts := time.Now().Unix()
		token := hmacMD5Hex(c.privateKey, fmt.Sprintf(`%d"%s%s"`, ts, ActionBaseURL, action))
		req.Header.Set("HNAP_AUTH", fmt.Sprintf("%s %d", token, ts))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, action)}
	}
	return parseEnvelope(data, action)
}
