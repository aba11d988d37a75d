package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"rentwheels/models"

	"firebase.google.com/go/v4/messaging"
)

func TestSMSChannelPostsToGateway(t *testing.T) {
	var got smsRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "key-1", "RENTWHEELS")
	n := &models.Notification{ID: "n1", Title: "Booking approved", Message: "Pay now"}
	if err := ch.Send(context.Background(), n, &models.Contact{Phone: "+250788000000"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.To != "+250788000000" || got.From != "RENTWHEELS" || !strings.Contains(got.Message, "Pay now") {
		t.Fatalf("unexpected gateway body: %+v", got)
	}
	if auth != "Bearer key-1" {
		t.Fatalf("unexpected auth header %q", auth)
	}
}

func TestSMSChannelGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "", "")
	err := ch.Send(context.Background(), &models.Notification{}, &models.Contact{Phone: "+250"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestSMSChannelNoPhone(t *testing.T) {
	ch := NewSMSChannel("http://unused", "", "")
	if err := ch.Send(context.Background(), &models.Notification{}, &models.Contact{}); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
}

func TestEmailChannelBuildsMessage(t *testing.T) {
	ch := NewEmailChannel("smtp.example.com", 587, "user", "pass", "noreply@example.com")
	var addr string
	var body []byte
	ch.sendMail = func(a string, _ smtp.Auth, from string, to []string, msg []byte) error {
		addr, body = a, msg
		return nil
	}

	n := &models.Notification{Title: "Booking paid", Message: "Thanks"}
	if err := ch.Send(context.Background(), n, &models.Contact{Email: "c@example.com"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if addr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %q", addr)
	}
	text := string(body)
	if !strings.Contains(text, "Subject: Booking paid") || !strings.Contains(text, "To: c@example.com") {
		t.Fatalf("unexpected mail:\n%s", text)
	}
}

type fakeFCM struct {
	last *messaging.Message
	err  error
}

func (f *fakeFCM) Send(ctx context.Context, m *messaging.Message) (string, error) {
	f.last = m
	return "msg-1", f.err
}

func TestPushChannelTargets(t *testing.T) {
	fcm := &fakeFCM{}
	ch := NewPushChannel(fcm, "broadcast")

	if err := ch.Send(context.Background(), &models.Notification{ID: "b1", Title: "t"}, &models.Contact{}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if fcm.last.Topic != "broadcast" || fcm.last.Token != "" {
		t.Fatalf("broadcast must go to topic: %+v", fcm.last)
	}

	n := &models.Notification{ID: "n1", UserID: "u1", Data: map[string]string{"bookingId": "b-1"}}
	if err := ch.Send(context.Background(), n, &models.Contact{UserID: "u1", FCMToken: "tok"}); err != nil {
		t.Fatalf("user push: %v", err)
	}
	if fcm.last.Token != "tok" || fcm.last.Data["bookingId"] != "b-1" || fcm.last.Data["notificationId"] != "n1" {
		t.Fatalf("unexpected user message: %+v", fcm.last)
	}

	if err := ch.Send(context.Background(), n, &models.Contact{UserID: "u1"}); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress without token, got %v", err)
	}
}
