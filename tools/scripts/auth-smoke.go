// Package main provides a CI-friendly HTTP smoke test for the warden auth API.
//
// It validates:
//   - registration of a fresh user
//   - login and the refresh cookie
//   - bearer access to GET /user
//   - refresh rotation and replay rejection
//   - logout
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	mediaType     = "application/vnd.api+json"
	refreshCookie = "refresh_token"
	maxReadBytes  = 1 << 20
)

type smokeClient struct {
	base    string
	http    *http.Client
	verbose bool
}

type tokenDoc struct {
	Meta struct {
		AccessToken string `json:"accessToken"`
	} `json:"meta"`
}

type errorDoc struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		password = flag.String("password", "SmokeTest12345", "Password for the generated user")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		verbose: *verbose,
	}

	username := "smoke" + strings.ToLower(ulid.Make().String())
	creds := userBody(map[string]string{"username": username, "password": *password})

	mustStatus(c.do(http.MethodPost, "/user", creds, nil, ""), http.StatusCreated, "register")

	resp := c.do(http.MethodPost, "/session", creds, nil, "")
	access, refresh := mustTokens(resp, "login")

	resp = c.do(http.MethodGet, "/user", "", nil, access)
	body := mustStatus(resp, http.StatusOK, "show user")
	if !bytes.Contains(body, []byte(`"username":"`+username+`"`)) {
		fatalf("show user: username %q not in %s", username, body)
	}

	resp = c.do(http.MethodPut, "/session", "", refresh, "")
	_, rotated := mustTokens(resp, "rotate")
	if rotated.Value == refresh.Value {
		fatalf("rotate: refresh token was not replaced")
	}

	resp = c.do(http.MethodPut, "/session", "", refresh, "")
	body = mustStatus(resp, http.StatusUnauthorized, "replay")
	var doc errorDoc
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Errors) == 0 {
		fatalf("replay: expected error document, got %s", body)
	}

	mustStatus(c.do(http.MethodDelete, "/session", "", rotated, ""), http.StatusNoContent, "logout")
	mustStatus(c.do(http.MethodPut, "/session", "", rotated, ""), http.StatusUnauthorized, "refresh after logout")

	fmt.Printf("OK: user=%s replay=%q\n", username, doc.Errors[0].Detail)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func userBody(attrs map[string]string) string {
	b, err := json.Marshal(map[string]any{
		"data": map[string]any{"type": "users", "attributes": attrs},
	})
	if err != nil {
		fatalf("marshal body: %v", err)
	}
	return string(b)
}

func (c *smokeClient) do(method, path, body string, cookie *http.Cookie, bearer string) *http.Response {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", mediaType)
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d\n", method, path, resp.StatusCode)
	}
	return resp
}

func mustStatus(resp *http.Response, want int, step string) []byte {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s: read body: %v", step, err)
	}
	if resp.StatusCode != want {
		fatalf("%s: status=%d want=%d body=%s", step, resp.StatusCode, want, body)
	}
	return body
}

func mustTokens(resp *http.Response, step string) (string, *http.Cookie) {
	body := mustStatus(resp, http.StatusCreated, step)

	var doc tokenDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		fatalf("%s: decode: %v", step, err)
	}
	if doc.Meta.AccessToken == "" {
		fatalf("%s: missing access token in %s", step, body)
	}
	for _, c := range resp.Cookies() {
		if c.Name == refreshCookie && c.Value != "" {
			if !c.HttpOnly {
				fatalf("%s: refresh cookie must be HttpOnly", step)
			}
			return doc.Meta.AccessToken, c
		}
	}
	fatalf("%s: no %s cookie", step, refreshCookie)
	return "", nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
