package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"frost-risk-alerts/internal/risk"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func sampleNotification() Notification {
	return Notification{
		TargetTime:       time.Date(2024, 6, 14, 3, 0, 0, 0, time.UTC),
		Location:         "Patala, Pucará (Open-Meteo)",
		Outcome:          risk.OutcomeLikely,
		Intensity:        risk.IntensitySevere,
		DurationHours:    4.0,
		FrostProbability: 0.85,
		ForecastTemp:     -3.2,
		Channels:         []string{"telegram"},
	}
}

func TestTelegramNotifySendsMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token123", "chat456", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("发送不应失败: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Fatalf("请求路径不正确: %s", gotPath)
	}
	if gotBody["chat_id"] != "chat456" {
		t.Fatalf("chat_id 不正确: %s", gotBody["chat_id"])
	}

	text := gotBody["text"]
	for _, want := range []string{"[Frost Risk Alert]", "severe", "85%", "-3.2 °C", "Patala"} {
		if !strings.Contains(text, want) {
			t.Fatalf("消息缺少 %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("HTTP 502 应返回错误")
	}
}

func TestTelegramNotifyAPIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false 应返回错误")
	}
}

func TestRenderMessageIncludesSimulatedSuffix(t *testing.T) {
	note := sampleNotification()
	note.AdditionalMsg = "(simulated)"

	text := renderMessage(note)
	if !strings.HasSuffix(text, "(simulated)") {
		t.Fatalf("附加说明应拼接在消息末尾:\n%s", text)
	}
}
