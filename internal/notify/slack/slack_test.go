package slack

import (
	"context"
	"errors"
	"testing"

	slackapi "github.com/slack-go/slack"
)

// mockClient records PostMessage calls.
type mockClient struct {
	calls   int
	channel string
	ts      string
	err     error
}

func (m *mockClient) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channel = channelID
	return channelID, m.ts, m.err
}

func TestNewRequiresChannel(t *testing.T) {
	if _, err := New(Opts{BotToken: "xoxb-test"}); err == nil {
		t.Fatal("expected error without channel id")
	}
	if _, err := New(Opts{ChannelID: "C1", Client: &mockClient{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateThreadReturnsTimestamp(t *testing.T) {
	client := &mockClient{ts: "1700000000.000100"}
	n, _ := New(Opts{ChannelID: "C1", Client: client})

	ts, err := n.CreateThread(context.Background(), "Иван, 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1700000000.000100" {
		t.Errorf("ts = %q", ts)
	}
	if client.channel != "C1" {
		t.Errorf("channel = %q", client.channel)
	}
}

func TestSend(t *testing.T) {
	client := &mockClient{}
	n, _ := New(Opts{ChannelID: "C1", Client: client})

	if err := n.Send(context.Background(), "1700000000.000100", "alert"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestSendPropagatesError(t *testing.T) {
	client := &mockClient{err: errors.New("channel_not_found")}
	n, _ := New(Opts{ChannelID: "C1", Client: client})

	if err := n.Send(context.Background(), "", "alert"); err == nil {
		t.Fatal("expected error from the API client")
	}
}
