package tasks

import (
	"encoding/json"
	"testing"
)

func TestNotificationSendTaskPayload(t *testing.T) {
	task, opts, err := NewNotificationSendTask("n-1")
	if err != nil {
		t.Fatalf("NewNotificationSendTask: %v", err)
	}
	if task.Type() != TypeNotificationSend {
		t.Fatalf("unexpected type %s", task.Type())
	}
	var p NotificationSendPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil || p.NotificationID != "n-1" {
		t.Fatalf("unexpected payload %s (%v)", task.Payload(), err)
	}
	if len(opts) == 0 {
		t.Fatal("expected queue options")
	}
}

func TestNotificationRetryTaskPayload(t *testing.T) {
	task, _, err := NewNotificationRetryTask(75)
	if err != nil {
		t.Fatalf("NewNotificationRetryTask: %v", err)
	}
	var p NotificationRetryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil || p.Limit != 75 {
		t.Fatalf("unexpected payload %s (%v)", task.Payload(), err)
	}
}
