package camera

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/services"
)

// onvifEventPort is where Reolink cameras expose their ONVIF event service.
const onvifEventPort = 8000

const (
	subscriptionTermination = "PT180S"
	pullTimeout             = "PT3S"
	pullMessageLimit        = 10
	resubscribeDelay        = time.Second
)

// pullPointSubscriber maintains an ONVIF pull-point subscription and converts
// delivered motion notifications into callback invocations.
type pullPointSubscriber struct {
	serviceURL string
	username   string
	password   string
	logger     *slog.Logger
	client     *http.Client
}

func newPullPointSubscriber(cfg *config.Config, logger *slog.Logger) *pullPointSubscriber {
	return &pullPointSubscriber{
		serviceURL: fmt.Sprintf("http://%s:%d/onvif/event_service", cfg.Camera.Host, onvifEventPort),
		username:   cfg.Camera.Username,
		password:   cfg.Camera.Password,
		logger:     logging.NewComponentLogger(logger, "onvif"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithServiceURL overrides the event service endpoint, for tests.
func (p *pullPointSubscriber) WithServiceURL(serviceURL string) {
	p.serviceURL = serviceURL
}

// start creates the subscription and runs the pull loop in a goroutine until
// ctx is cancelled. fire is invoked once per delivered motion notification.
func (p *pullPointSubscriber) start(ctx context.Context, fire func()) error {
	address, err := p.subscribe(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("motion event subscription established",
		logging.String("service", p.serviceURL))

	go p.pullLoop(ctx, address, fire)
	return nil
}

func (p *pullPointSubscriber) pullLoop(ctx context.Context, address string, fire func()) {
	for {
		if ctx.Err() != nil {
			return
		}

		messages, err := p.pull(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("pull failed, renewing subscription", logging.Error(err))
			address = p.resubscribe(ctx)
			continue
		}

		for _, message := range messages {
			if messageReportsMotion(message) {
				fire()
			}
		}
	}
}

// resubscribe keeps trying until a new subscription is established or the
// context ends. Cameras drop pull points on reboot or firmware hiccups.
func (p *pullPointSubscriber) resubscribe(ctx context.Context) string {
	for {
		address, err := p.subscribe(ctx)
		if err == nil {
			return address
		}
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(resubscribeDelay):
		}
	}
}

func (p *pullPointSubscriber) subscribe(ctx context.Context) (string, error) {
	request := soapRequest{
		user:     p.username,
		password: p.password,
		action:   "http://www.onvif.org/ver10/events/wsdl/EventPortType/CreatePullPointSubscriptionRequest",
		body: `<CreatePullPointSubscription xmlns="http://www.onvif.org/ver10/events/wsdl">` +
			`<InitialTerminationTime>` + subscriptionTermination + `</InitialTerminationTime>` +
			`</CreatePullPointSubscription>`,
	}

	envelope, err := request.send(ctx, p.client, p.serviceURL, "")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "camera", "subscribe", "create pull point subscription", err)
	}

	address := strings.TrimSpace(envelope.Body.CreatePullPointSubscriptionResponse.SubscriptionReference.Address)
	if address == "" {
		return "", services.Wrap(services.ErrExternalTool, "camera", "subscribe", "subscription response carried no address", nil)
	}
	return address, nil
}

func (p *pullPointSubscriber) pull(ctx context.Context, address string) ([]notificationMessage, error) {
	request := soapRequest{
		user:     p.username,
		password: p.password,
		action:   "http://www.onvif.org/ver10/events/wsdl/PullPointSubscription/PullMessagesRequest",
		body: `<PullMessages xmlns="http://www.onvif.org/ver10/events/wsdl">` +
			`<Timeout>` + pullTimeout + `</Timeout>` +
			fmt.Sprintf(`<MessageLimit>%d</MessageLimit>`, pullMessageLimit) +
			`</PullMessages>`,
	}

	envelope, err := request.send(ctx, p.client, p.serviceURL, address)
	if err != nil {
		return nil, err
	}
	return envelope.Body.PullMessagesResponse.NotificationMessages, nil
}

// messageReportsMotion inspects the notification payload for an active motion
// flag. Reolink reports motion via RuleEngine CellMotionDetector items named
// IsMotion, and alarm topics use State.
func messageReportsMotion(message notificationMessage) bool {
	for _, item := range message.Message.Data.Items {
		switch item.Name {
		case "IsMotion", "State", "IsPeople", "IsVehicle":
			if strings.EqualFold(item.Value, "true") {
				return true
			}
		}
	}
	return false
}
