package pubsub

import (
	"context"
	"testing"

	"github.com/easelhouse/paintsip-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"easel", "ps-booking-events", "projects/easel/topics/ps-booking-events"},
		{"easel", " projects/other/topics/t1 ", "projects/other/topics/t1"},
		{"", "ps-booking-events", ""},
		{"easel", "  ", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := TopicNames(config.PubSubConfig{BookingsTopic: "bookings", AccountsTopic: " "})
	if len(names) != 1 || names[0] != "bookings" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("bookings") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestClientOptionsFollowCredentialOrder(t *testing.T) {
	if got := clientOptions(config.GCPConfig{}); len(got) != 0 {
		t.Fatalf("expected ADC fallback, got %d options", len(got))
	}
	both := config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/key.json"}
	if got := clientOptions(both); len(got) != 1 {
		t.Fatalf("expected a single credential option, got %d", len(got))
	}
	if got := clientOptions(config.GCPConfig{ApplicationCredentials: "/etc/key.json"}); len(got) != 1 {
		t.Fatalf("expected file option, got %d", len(got))
	}
}
