//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRemoteAPI_BuildLifecycle(t *testing.T) {
	baseURL := strings.TrimRight(envOr("E2E_BASE_URL", "http://localhost:8080"), "/")
	playerID := envOr("E2E_PLAYER_ID", "e2e-player-"+time.Now().UTC().Format("20060102150405"))
	client := &http.Client{Timeout: 20 * time.Second}

	status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/v1/cities", playerID, map[string]any{"name": "e2e"})
	if status != http.StatusCreated {
		t.Fatalf("create city status=%d body=%s", status, string(body))
	}
	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal city: %v body=%s", err, string(body))
	}
	cityID, _ := created["city_id"].(string)
	grid := asMap(created["grid"])
	width, _ := grid["width"].(float64)
	if cityID == "" || width == 0 {
		t.Fatalf("unexpected city body=%s", string(body))
	}

	t.Run("start rejects a foreign player", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/v1/actions/start", playerID+"-intruder", map[string]any{
			"city_id":     cityID,
			"action_type": "build",
			"data":        map[string]any{"base_type": "kelp_forest", "position": map[string]int{"x": int(width) / 2, "y": 1}},
		})
		if status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d body=%s", status, string(body))
		}
	})

	var actionID string
	var duration float64
	t.Run("start build", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/v1/actions/start", playerID, map[string]any{
			"city_id":     cityID,
			"action_type": "build",
			"data":        map[string]any{"base_type": "kelp_forest", "position": map[string]int{"x": int(width) / 2, "y": 1}},
		})
		if status != http.StatusCreated {
			t.Fatalf("start status=%d body=%s", status, string(body))
		}
		var resp map[string]any
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshal start: %v", err)
		}
		a := asMap(resp["action"])
		actionID, _ = a["action_id"].(string)
		duration, _ = a["duration_seconds"].(float64)
		if actionID == "" {
			t.Fatalf("missing action id body=%s", string(body))
		}
	})

	t.Run("complete before due is pending", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/v1/actions/complete", playerID, map[string]any{"action_id": actionID})
		if status != http.StatusAccepted {
			t.Fatalf("expected 202, got %d body=%s", status, string(body))
		}
	})

	t.Run("complete after due and replay", func(t *testing.T) {
		if testing.Short() {
			t.Skip("waits for the build timer")
		}
		time.Sleep(time.Duration(duration+1) * time.Second)
		for i := 0; i < 2; i++ {
			status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/v1/actions/complete", playerID, map[string]any{"action_id": actionID})
			if status != http.StatusOK {
				t.Fatalf("attempt %d: complete status=%d body=%s", i, status, string(body))
			}
		}
	})

	t.Run("resources and kpi", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodGet, baseURL+"/api/v1/resources/"+cityID, playerID, nil)
		if status != http.StatusOK {
			t.Fatalf("resources status=%d body=%s", status, string(body))
		}
		status, body = mustJSON(t, client, http.MethodGet, baseURL+"/ops/kpi", "", nil)
		if status != http.StatusOK {
			t.Fatalf("kpi status=%d body=%s", status, string(body))
		}
		var kpi map[string]any
		if err := json.Unmarshal(body, &kpi); err != nil {
			t.Fatalf("unmarshal kpi: %v", err)
		}
		if _, ok := kpi["action_started"]; !ok {
			t.Fatalf("expected action_started in kpi response")
		}
	})
}

func mustJSON(t *testing.T, client *http.Client, method, url, playerID string, body map[string]any) (int, []byte) {
	t.Helper()
	status, respBody, err := doRequest(client, method, url, playerID, body)
	if err != nil {
		t.Fatalf("%s %s request failed: %v", method, url, err)
	}
	return status, respBody
}

func doRequest(client *http.Client, method, url, playerID string, body map[string]any) (int, []byte, error) {
	var payloadBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payloadBytes = b
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var payload io.Reader
		if len(payloadBytes) > 0 {
			payload = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequest(method, url, payload)
		if err != nil {
			return 0, nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if strings.TrimSpace(playerID) != "" {
			req.Header.Set("X-Player-ID", playerID)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil
		if resp.StatusCode >= 500 {
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
