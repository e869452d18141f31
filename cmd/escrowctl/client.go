package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// client is a thin wrapper over the escrowd HTTP API. Server errors are
// surfaced as "code: description" so shell scripts can match on them.
type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(cmd *cobra.Command) *client {
	token := cmd.Flag("token").Value.String()
	if token == "" {
		token = os.Getenv("ESCROWCTL_TOKEN")
	}
	return &client{
		base:  strings.TrimRight(cmd.Flag("addr").Value.String(), "/"),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Description != "" {
				return nil, fmt.Errorf("%s: %s", apiErr.Error, apiErr.Description)
			}
			return nil, errors.New(apiErr.Error)
		}
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	return payload, nil
}

// printJSON pretty-prints an API response; empty bodies become "ok" so every
// successful command produces output.
func printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Println("ok")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
