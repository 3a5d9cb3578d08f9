package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/services"
)

const (
	apiRequestTimeout = 10 * time.Second
	// tokenLeeway renews the session token before the camera's lease expires.
	tokenLeeway = 60 * time.Second
)

// Reolink is the HTTP api.cgi implementation of Client plus the ONVIF
// pull-point event channel.
type Reolink struct {
	host     string
	username string
	password string
	channel  int
	logger   *slog.Logger
	client   *http.Client

	events *pullPointSubscriber

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	callback    MotionCallback
}

// NewReolink builds a camera client from configuration.
func NewReolink(cfg *config.Config, logger *slog.Logger) *Reolink {
	r := &Reolink{
		host:     cfg.Camera.Host,
		username: cfg.Camera.Username,
		password: cfg.Camera.Password,
		channel:  cfg.Camera.Channel,
		logger:   logging.NewComponentLogger(logger, "camera"),
		client:   &http.Client{Timeout: apiRequestTimeout},
	}
	r.events = newPullPointSubscriber(cfg, r.logger)
	return r
}

// BaseURL returns the api.cgi endpoint. Split out so tests can point the
// client at a local server.
func (r *Reolink) BaseURL() string {
	return fmt.Sprintf("http://%s/api.cgi", r.host)
}

// WithEndpoint overrides the api.cgi endpoint host, for tests.
func (r *Reolink) WithEndpoint(host string) {
	r.host = host
}

// Connect logs in and verifies the camera answers command requests.
func (r *Reolink) Connect(ctx context.Context) error {
	if err := r.login(ctx); err != nil {
		return err
	}
	r.logger.Info("connected to camera",
		logging.String("host", r.host),
		logging.Int("channel", r.channel))
	return nil
}

// RegisterMotionCallback installs the motion handler.
func (r *Reolink) RegisterMotionCallback(fn MotionCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

// SubscribeEvents opens the ONVIF pull-point channel and starts the pull loop.
func (r *Reolink) SubscribeEvents(ctx context.Context) error {
	r.mu.Lock()
	callback := r.callback
	r.mu.Unlock()
	if callback == nil {
		return services.Wrap(services.ErrValidation, "camera", "subscribe", "no motion callback registered", nil)
	}
	return r.events.start(ctx, func() {
		callback(MotionEvent{Channel: r.channel, ReceivedAt: time.Now()})
	})
}

// QueryAIState fetches the classification flags for the channel.
func (r *Reolink) QueryAIState(ctx context.Context, channel int) (AIState, error) {
	results, err := r.SendRawCommand(ctx, []Command{{
		Cmd:    "GetAiState",
		Action: 0,
		Param:  map[string]any{"channel": channel},
	}})
	if err != nil {
		return AIState{}, err
	}
	if len(results) == 0 || results[0].Code != 0 {
		return AIState{}, services.Wrap(services.ErrExternalTool, "camera", "ai-state",
			fmt.Sprintf("GetAiState failed: %s", resultDetail(results)), nil)
	}
	return parseAIState(results[0].Value)
}

type aiFlag struct {
	AlarmState int `json:"alarm_state"`
	Support    int `json:"support"`
}

type aiStateValue struct {
	Channel int    `json:"channel"`
	Vehicle aiFlag `json:"vehicle"`
	People  aiFlag `json:"people"`
	Face    aiFlag `json:"face"`
	DogCat  aiFlag `json:"dog_cat"`
}

func parseAIState(raw json.RawMessage) (AIState, error) {
	var value aiStateValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return AIState{}, services.Wrap(services.ErrExternalTool, "camera", "ai-state", "decode GetAiState value", err)
	}
	return AIState{
		Vehicle: value.Vehicle.AlarmState != 0,
		Person:  value.People.AlarmState != 0,
		Face:    value.Face.AlarmState != 0,
		Pet:     value.DogCat.AlarmState != 0,
	}, nil
}

// SendRawCommand posts a command batch to api.cgi, renewing the session token
// when needed.
func (r *Reolink) SendRawCommand(ctx context.Context, body []Command) ([]CommandResult, error) {
	token, err := r.currentToken(ctx)
	if err != nil {
		return nil, err
	}
	return r.post(ctx, body, token)
}

// Close logs out of the camera session. Logout failures are logged, not
// surfaced: the session token expires on its own.
func (r *Reolink) Close(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()
	if token == "" {
		return nil
	}
	if _, err := r.post(ctx, []Command{{Cmd: "Logout", Action: 0}}, token); err != nil {
		r.logger.Debug("camera logout failed", logging.Error(err))
	}
	return nil
}

func (r *Reolink) currentToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	token := r.token
	valid := token != "" && time.Now().Before(r.tokenExpiry)
	r.mu.Unlock()
	if valid {
		return token, nil
	}
	if err := r.login(ctx); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token, nil
}

type loginValue struct {
	Token struct {
		Name      string `json:"name"`
		LeaseTime int    `json:"leaseTime"`
	} `json:"Token"`
}

func (r *Reolink) login(ctx context.Context) error {
	results, err := r.post(ctx, []Command{{
		Cmd:    "Login",
		Action: 0,
		Param: map[string]any{
			"User": map[string]any{
				"userName": r.username,
				"password": r.password,
			},
		},
	}}, "")
	if err != nil {
		return err
	}
	if len(results) == 0 || results[0].Code != 0 {
		return services.Wrap(services.ErrExternalTool, "camera", "login",
			fmt.Sprintf("login rejected: %s", resultDetail(results)), nil)
	}

	var value loginValue
	if err := json.Unmarshal(results[0].Value, &value); err != nil {
		return services.Wrap(services.ErrExternalTool, "camera", "login", "decode login response", err)
	}
	if value.Token.Name == "" {
		return services.Wrap(services.ErrExternalTool, "camera", "login", "login response carried no token", nil)
	}

	lease := time.Duration(value.Token.LeaseTime) * time.Second
	if lease <= tokenLeeway {
		lease = 2 * tokenLeeway
	}

	r.mu.Lock()
	r.token = value.Token.Name
	r.tokenExpiry = time.Now().Add(lease - tokenLeeway)
	r.mu.Unlock()
	return nil
}

func (r *Reolink) post(ctx context.Context, body []Command, token string) ([]CommandResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "request", "encode command body", err)
	}

	endpoint := r.BaseURL()
	params := url.Values{}
	if len(body) > 0 {
		params.Set("cmd", body[0].Cmd)
	}
	if token != "" {
		params.Set("token", token)
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "request", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "request", "call camera", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrExternalTool, "camera", "request",
			fmt.Sprintf("camera returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var results []CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "request", "decode camera response", err)
	}
	return results, nil
}

func resultDetail(results []CommandResult) string {
	if len(results) == 0 {
		return "empty response"
	}
	first := results[0]
	if first.Error != nil {
		return fmt.Sprintf("code %d (%s)", first.Error.RspCode, first.Error.Detail)
	}
	return fmt.Sprintf("code %d", first.Code)
}
