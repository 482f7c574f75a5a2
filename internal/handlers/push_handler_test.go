package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/messaging"

	"wonmoreBack/internal/models"
	"wonmoreBack/internal/services"
)

type fakeSender struct {
	sent []*messaging.Message
}

func (f *fakeSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return "msg-id", nil
}

func postPush(t *testing.T, h *PushHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/send-push", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.SendPush(rr, req)
	return rr
}

func TestSendPush(t *testing.T) {
	sender := &fakeSender{}
	h := NewPushHandler(&services.PushService{Client: sender})

	rr := postPush(t, h, `{"tokens":["a","b"],"title":"t","body":"b"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp models.PushResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Sent != 2 || len(resp.Results) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d messages", len(sender.sent))
	}
}

func TestSendPushEmptyTokens(t *testing.T) {
	h := NewPushHandler(&services.PushService{Client: &fakeSender{}})
	rr := postPush(t, h, `{"tokens":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp models.PushResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.OK || resp.Sent != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSendPushNotConfigured(t *testing.T) {
	h := NewPushHandler(&services.PushService{})
	rr := postPush(t, h, `{"tokens":["a"]}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSendPushBadJSON(t *testing.T) {
	h := NewPushHandler(&services.PushService{Client: &fakeSender{}})
	rr := postPush(t, h, `{tokens`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}
