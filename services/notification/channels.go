package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"rentwheels/models"

	"firebase.google.com/go/v4/messaging"
)

// ErrNoAddress means the channel does not apply to this recipient. The
// delivery is recorded as skipped and never retried.
var ErrNoAddress = errors.New("recipient has no address for this channel")

// Channel delivers a notification over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, n *models.Notification, to *models.Contact) error
}

// EmailChannel sends plain-text mail through an SMTP relay.
type EmailChannel struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailChannel(host string, port int, username, password, from string) *EmailChannel {
	return &EmailChannel{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		sendMail: smtp.SendMail,
	}
}

func (c *EmailChannel) Name() string { return models.ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, n *models.Notification, to *models.Contact) error {
	if to == nil || to.Email == "" {
		return ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.Username != "" {
		auth = smtp.PlainAuth("", c.Username, c.Password, c.Host)
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	if err := c.sendMail(addr, auth, c.From, []string{to.Email}, buildEmail(c.From, to.Email, n)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildEmail(from, to string, n *models.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(n.Title, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// SMSChannel posts text messages to an HTTP SMS gateway.
type SMSChannel struct {
	URL      string
	APIKey   string
	SenderID string
	Client   *http.Client
}

func NewSMSChannel(url, apiKey, senderID string) *SMSChannel {
	return &SMSChannel{
		URL:      url,
		APIKey:   apiKey,
		SenderID: senderID,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *SMSChannel) Name() string { return models.ChannelSMS }

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (c *SMSChannel) Send(ctx context.Context, n *models.Notification, to *models.Contact) error {
	if to == nil || to.Phone == "" {
		return ErrNoAddress
	}
	body, err := json.Marshal(smsRequest{
		To:      to.Phone,
		From:    c.SenderID,
		Message: n.Title + ": " + n.Message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// FCMSender is the part of the Firebase messaging client the push channel
// uses.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel delivers in-app notifications through Firebase Cloud
// Messaging. Broadcasts go to a topic.
type PushChannel struct {
	Client         FCMSender
	BroadcastTopic string
}

func NewPushChannel(client FCMSender, broadcastTopic string) *PushChannel {
	return &PushChannel{Client: client, BroadcastTopic: broadcastTopic}
}

func (c *PushChannel) Name() string { return models.ChannelInApp }

func (c *PushChannel) Send(ctx context.Context, n *models.Notification, to *models.Contact) error {
	data := map[string]string{
		"notificationId": n.ID,
		"type":           n.Type,
	}
	for k, v := range n.Data {
		data[k] = v
	}

	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	switch {
	case n.UserID == "":
		if c.BroadcastTopic == "" {
			return ErrNoAddress
		}
		msg.Topic = c.BroadcastTopic
	case to == nil || to.FCMToken == "":
		return ErrNoAddress
	default:
		msg.Token = to.FCMToken
	}

	if _, err := c.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
