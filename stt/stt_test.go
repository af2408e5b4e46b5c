package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPITranscribe(t *testing.T) {
	var gotModel, gotLanguage, gotAuth string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			buf := make([]byte, 4)
			f.Read(buf)
			gotFile = buf
			f.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer srv.Close()

	engine := NewAPI(APIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	text, err := engine.Transcribe(context.Background(), []float32{0, 0.25, -0.25}, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", gotModel)
	}
	if gotLanguage != "en" {
		t.Errorf("language = %q, want en", gotLanguage)
	}
	if string(gotFile) != "RIFF" {
		t.Errorf("uploaded file does not start with RIFF: %q", gotFile)
	}
}

func TestAPITranscribeLanguageHandling(t *testing.T) {
	tests := []struct {
		name     string
		language string
		want     string
	}{
		{"auto omitted", "auto", ""},
		{"empty omitted", "", ""},
		{"script variant normalized", "zh-Hans", "zh"},
		{"plain code passes through", "ja", "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.ParseMultipartForm(10 << 20)
				got = r.FormValue("language")
				w.Write([]byte(`{"text":"ok"}`))
			}))
			defer srv.Close()

			engine := NewAPI(APIConfig{APIKey: "k", BaseURL: srv.URL})
			if _, err := engine.Transcribe(context.Background(), []float32{0}, tt.language); err != nil {
				t.Fatalf("Transcribe: %v", err)
			}
			if got != tt.want {
				t.Errorf("language field = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPITranscribeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	engine := NewAPI(APIConfig{APIKey: "bad", BaseURL: srv.URL})
	if _, err := engine.Transcribe(context.Background(), []float32{0}, ""); err == nil {
		t.Error("expected error for 401 response")
	}

	noKey := NewAPI(APIConfig{BaseURL: srv.URL})
	if _, err := noKey.Transcribe(context.Background(), []float32{0}, ""); err == nil {
		t.Error("expected error with missing API key")
	}
}

func TestLocalNotReadyWithoutBinary(t *testing.T) {
	l, err := NewLocal(LocalConfig{ModelSize: "base", ModelDir: t.TempDir(), BinPath: ""})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	// No model file in the temp dir, so the engine cannot be ready even if
	// a whisper binary happens to be installed on the test machine.
	if l.IsReady() {
		t.Error("engine reports ready without a model file")
	}
}

func TestNewLocalRejectsBadModelSize(t *testing.T) {
	if _, err := NewLocal(LocalConfig{ModelSize: "enormous"}); err == nil {
		t.Error("expected error for unknown model size")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	if got := normalizeLanguage("zh-Hant"); got != "zh" {
		t.Errorf("normalizeLanguage(zh-Hant) = %q, want zh", got)
	}
	if got := normalizeLanguage("en"); got != "en" {
		t.Errorf("normalizeLanguage(en) = %q, want en", got)
	}
}
