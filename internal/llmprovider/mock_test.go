package llmprovider

import (
	"context"
	"errors"
	"testing"
)

func TestMockProviderReplaysScriptedResponses(t *testing.T) {
	mock := NewMock(
		Response{Content: "first"},
		Response{Content: "second"},
	)

	resp, err := mock.Complete(context.Background(), Request{Model: "mock-model"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("Complete() Content = %q, want %q", resp.Content, "first")
	}

	resp, err = mock.Complete(context.Background(), Request{Model: "mock-model"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("Complete() Content = %q, want %q", resp.Content, "second")
	}

	resp, err = mock.Complete(context.Background(), Request{Model: "mock-model"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("Complete() after script exhausted = %q, want last response to hold steady", resp.Content)
	}

	if mock.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", mock.CallCount())
	}
}

func TestMockProviderDefaultsToComplete(t *testing.T) {
	mock := NewMock()
	resp, err := mock.Complete(context.Background(), Request{Model: "mock-model"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "[COMPLETE]" || resp.FinishReason != FinishStop {
		t.Errorf("Complete() = %+v, want default completion response", resp)
	}
}

func TestMockProviderSetErrorFailsSubsequentCalls(t *testing.T) {
	mock := NewMock(Response{Content: "ok"})
	wantErr := errors.New("boom")
	mock.SetError(wantErr)

	_, err := mock.Complete(context.Background(), Request{Model: "mock-model"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Complete() error = %v, want %v", err, wantErr)
	}
}

func TestMockProviderRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMock()
	_, err := mock.Complete(ctx, Request{Model: "mock-model"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}
