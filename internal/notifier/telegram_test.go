package notifier

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/amishk599/jobharvest/internal/model"
)

// fakeTelegram answers getMe and records sendMessage form posts.
type fakeTelegram struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"harvest","username":"harvest_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.fail {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_ = r.ParseForm()
		f.mu.Lock()
		f.texts = append(f.texts, r.PostForm.Get("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestTelegram(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	n, err := NewTelegramNotifierWithEndpoint("TOKEN", 7, srv.URL+"/bot%s/%s", srv.Client(), discardLogger())
	if err != nil {
		t.Fatalf("NewTelegramNotifierWithEndpoint: %v", err)
	}
	return n
}

func TestTelegramNotifier_SendsEscapedHTML(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestTelegram(t, fake)

	rec := sampleRecord("Analista <Sr> & Jr", "Acme CR")
	if err := n.Notify("elempleo", []model.Record{rec}); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	if len(fake.texts) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.texts))
	}
	text := fake.texts[0]
	if !strings.Contains(text, "<b>Analista &lt;Sr&gt; &amp; Jr</b>") {
		t.Errorf("title not escaped: %q", text)
	}
	if !strings.Contains(text, "💰 ₡ 800.000") || !strings.Contains(text, "🌐 elempleo") {
		t.Errorf("missing salary or site line: %q", text)
	}
	if !strings.Contains(text, `href="https://www.elempleo.com/cr/ofertas-trabajo/123"`) {
		t.Errorf("missing apply link: %q", text)
	}
}

func TestTelegramNotifier_AllFail(t *testing.T) {
	n := newTestTelegram(t, &fakeTelegram{fail: true})
	if err := n.Notify("elempleo", []model.Record{sampleRecord("A", "B")}); err == nil {
		t.Fatal("expected error when all messages fail")
	}
}

func TestTelegramNotifier_BadEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := NewTelegramNotifierWithEndpoint("TOKEN", 7, srv.URL+"/bot%s/%s", srv.Client(), discardLogger()); err == nil {
		t.Fatal("expected error when getMe fails")
	}
}

func TestSendTestMessage(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestTelegram(t, fake)
	if err := SendTestMessage(n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if len(fake.texts) != 1 || !strings.Contains(fake.texts[0], "Notificación de prueba") {
		t.Fatalf("unexpected messages: %q", fake.texts)
	}
}
