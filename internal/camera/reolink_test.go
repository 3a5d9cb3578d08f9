package camera_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/camera"
	"github.com/Harky911/ReolinkANPR/internal/testsupport"
)

func newAPIServer(t *testing.T, handler func(cmd string, body []camera.Command) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []camera.Command
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		cmd := r.URL.Query().Get("cmd")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(handler(cmd, body)); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func loginResponse() any {
	return []map[string]any{{
		"cmd":  "Login",
		"code": 0,
		"value": map[string]any{
			"Token": map[string]any{"name": "test-token", "leaseTime": 3600},
		},
	}}
}

func TestQueryAIStateParsesFlags(t *testing.T) {
	server := newAPIServer(t, func(cmd string, _ []camera.Command) any {
		switch cmd {
		case "Login":
			return loginResponse()
		case "GetAiState":
			return []map[string]any{{
				"cmd":  "GetAiState",
				"code": 0,
				"value": map[string]any{
					"channel": 0,
					"vehicle": map[string]int{"alarm_state": 1, "support": 1},
					"people":  map[string]int{"alarm_state": 0, "support": 1},
					"face":    map[string]int{"alarm_state": 0, "support": 1},
					"dog_cat": map[string]int{"alarm_state": 1, "support": 1},
				},
			}}
		default:
			t.Errorf("unexpected command %q", cmd)
			return nil
		}
	})
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := camera.NewReolink(cfg, nil)
	client.WithEndpoint(strings.TrimPrefix(server.URL, "http://"))

	state, err := client.QueryAIState(context.Background(), 0)
	if err != nil {
		t.Fatalf("QueryAIState: %v", err)
	}
	if !state.Vehicle || state.Person || state.Face || !state.Pet {
		t.Fatalf("unexpected AI state: %+v", state)
	}
}

func TestQueryAIStateSurfacesFailureCode(t *testing.T) {
	server := newAPIServer(t, func(cmd string, _ []camera.Command) any {
		if cmd == "Login" {
			return loginResponse()
		}
		return []map[string]any{{
			"cmd":   "GetAiState",
			"code":  1,
			"error": map[string]any{"rspCode": -9, "detail": "not support"},
		}}
	})
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := camera.NewReolink(cfg, nil)
	client.WithEndpoint(strings.TrimPrefix(server.URL, "http://"))

	if _, err := client.QueryAIState(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-zero result code")
	}
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	server := newAPIServer(t, func(cmd string, _ []camera.Command) any {
		return []map[string]any{{
			"cmd":   "Login",
			"code":  1,
			"error": map[string]any{"rspCode": -7, "detail": "login failed"},
		}}
	})
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := camera.NewReolink(cfg, nil)
	client.WithEndpoint(strings.TrimPrefix(server.URL, "http://"))

	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail with rejected login")
	}
}

func TestSendRawCommandReusesSessionToken(t *testing.T) {
	logins := 0
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd := r.URL.Query().Get("cmd")
		if cmd == "Login" {
			logins++
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(loginResponse())
			return
		}
		tokens = append(tokens, r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"cmd": cmd, "code": 0, "value": map[string]any{}}})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := camera.NewReolink(cfg, nil)
	client.WithEndpoint(strings.TrimPrefix(server.URL, "http://"))

	for i := 0; i < 3; i++ {
		if _, err := client.SendRawCommand(context.Background(), []camera.Command{{Cmd: "GetIsp", Action: 1}}); err != nil {
			t.Fatalf("SendRawCommand %d: %v", i, err)
		}
	}
	if logins != 1 {
		t.Fatalf("expected a single login, got %d", logins)
	}
	for _, token := range tokens {
		if token != "test-token" {
			t.Fatalf("expected session token on command request, got %q", token)
		}
	}
}
