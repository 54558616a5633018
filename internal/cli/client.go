package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// ─── Daemon Client ──────────────────────────────────────────────────────────
// The non-serve commands are HTTP clients against a running daemon. They
// pass the acting account via X-Caller-ID and pretty-print the response.

var httpClient = &http.Client{Timeout: 15 * time.Second}

func daemonAddr(cmd *cobra.Command) string {
	addr, _ := cmd.Flags().GetString("addr")
	return addr
}

func callerFlag(cmd *cobra.Command) string {
	caller, _ := cmd.Flags().GetString("as")
	return caller
}

// apiCall issues one request against the daemon and decodes the JSON reply.
func apiCall(cmd *cobra.Command, method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), method, daemonAddr(cmd)+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if caller := callerFlag(cmd); caller != "" {
		req.Header.Set("X-Caller-ID", caller)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s: %w", daemonAddr(cmd), err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if e, ok := out["error"].(map[string]any); ok {
			if msg, ok := e["message"].(string); ok {
				return nil, fmt.Errorf("%s (%d)", msg, resp.StatusCode)
			}
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return out, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
