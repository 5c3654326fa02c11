// Package notify is the narrow outbound notification interface
// HeatingCycleEngine calls on completion and safety-timeout, per
// spec.md §4.9/§7. Grounded on the teacher's FCMNotifier, generalised
// from a weather-alarm broadcast to a single completion push.
package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Notifier is satisfied by both the live FCM sender and the stub.
type Notifier interface {
	NotifyCycleComplete(ctx context.Context, targetTempF, finalTempF float64) error
	NotifyCycleError(ctx context.Context, reason string) error
}

// FCMClient is the subset of *messaging.Client callers need, so tests can
// inject a fake without hitting Firebase — mirrors the teacher's
// IFCMClient wrapper seam.
type FCMClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier sends a single-device push via Firebase Cloud Messaging.
type FCMNotifier struct {
	client FCMClient
	token  string
	logger *zap.Logger
}

// NewFCMNotifier initialises a Firebase app from credentialsPath and
// wraps its messaging client. deviceToken is the single registered
// device's FCM token — this system has one hot tub, one owner, no
// per-user token table.
func NewFCMNotifier(ctx context.Context, credentialsPath, deviceToken string, logger *zap.Logger) (*FCMNotifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FCM credentials path is required")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting messaging client: %w", err)
	}
	return &FCMNotifier{client: client, token: deviceToken, logger: logger}, nil
}

func (n *FCMNotifier) NotifyCycleComplete(ctx context.Context, targetTempF, finalTempF float64) error {
	return n.send(ctx, "Hot tub ready", fmt.Sprintf("ready at %.1f°F", finalTempF), map[string]string{
		"event":        "cycle_complete",
		"target_f":     fmt.Sprintf("%.1f", targetTempF),
		"final_temp_f": fmt.Sprintf("%.1f", finalTempF),
	})
}

func (n *FCMNotifier) NotifyCycleError(ctx context.Context, reason string) error {
	return n.send(ctx, "Hot tub heating stopped", reason, map[string]string{
		"event":  "cycle_error",
		"reason": reason,
	})
}

func (n *FCMNotifier) send(ctx context.Context, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Token:        n.token,
	}

	_, err := n.client.Send(ctx, message)
	if err != nil {
		n.logger.Error("fcm send failed", zap.Error(err))
		n.logger.Info("retrying fcm send")
		if _, err = n.client.Send(ctx, message); err != nil {
			n.logger.Error("fcm send retry failed", zap.Error(err))
			return fmt.Errorf("sending fcm notification: %w", err)
		}
	}
	n.logger.Info("fcm notification sent", zap.String("title", title))
	return nil
}

// StubNotifier logs instead of sending, for development/stub mode.
type StubNotifier struct {
	logger *zap.Logger
}

func NewStubNotifier(logger *zap.Logger) *StubNotifier {
	return &StubNotifier{logger: logger}
}

func (n *StubNotifier) NotifyCycleComplete(_ context.Context, targetTempF, finalTempF float64) error {
	n.logger.Info("stub notify cycle complete", zap.Float64("target_f", targetTempF), zap.Float64("final_temp_f", finalTempF))
	return nil
}

func (n *StubNotifier) NotifyCycleError(_ context.Context, reason string) error {
	n.logger.Info("stub notify cycle error", zap.String("reason", reason))
	return nil
}
