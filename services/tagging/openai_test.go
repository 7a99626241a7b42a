package tagging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func openAIStub(t *testing.T, status int, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model == "" {
			t.Error("request missing model")
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": "boom"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"output": []map[string]interface{}{
				{"content": []map[string]string{{"text": answer}}},
			},
		})
	}))
}

func TestOpenAITaggerText(t *testing.T) {
	srv := openAIStub(t, http.StatusOK, "golang, testing, http")
	defer srv.Close()

	tagger := NewOpenAITaggerWithURL("test-key", srv.URL)
	result, err := tagger.Tag(context.Background(), Input{Text: "an article about testing http servers in go"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if result.NoTags {
		t.Fatal("unexpected NoTags")
	}
	if want := []string{"golang", "testing", "http"}; !reflect.DeepEqual(result.Tags, want) {
		t.Errorf("tags = %v, want %v", result.Tags, want)
	}
}

func TestOpenAITaggerImage(t *testing.T) {
	srv := openAIStub(t, http.StatusOK, "sunset, beach")
	defer srv.Close()

	tagger := NewOpenAITaggerWithURL("test-key", srv.URL)
	result, err := tagger.Tag(context.Background(), Input{ImageURL: "https://example.com/photo.jpg"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if want := []string{"sunset", "beach"}; !reflect.DeepEqual(result.Tags, want) {
		t.Errorf("tags = %v, want %v", result.Tags, want)
	}
}

func TestOpenAITaggerNoTags(t *testing.T) {
	srv := openAIStub(t, http.StatusOK, "NO_TAGS")
	defer srv.Close()

	tagger := NewOpenAITaggerWithURL("test-key", srv.URL)
	result, err := tagger.Tag(context.Background(), Input{Text: "zzz"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if !result.NoTags {
		t.Error("sentinel answer should produce NoTags")
	}
	if len(result.Tags) != 0 {
		t.Errorf("tags = %v, want none", result.Tags)
	}
}

func TestOpenAITaggerEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": []}`))
	}))
	defer srv.Close()

	tagger := NewOpenAITaggerWithURL("test-key", srv.URL)
	result, err := tagger.Tag(context.Background(), Input{Text: "anything"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if !result.NoTags {
		t.Error("empty provider output should produce NoTags")
	}
}

func TestOpenAITaggerProviderError(t *testing.T) {
	srv := openAIStub(t, http.StatusInternalServerError, "")
	defer srv.Close()

	tagger := NewOpenAITaggerWithURL("test-key", srv.URL)
	if _, err := tagger.Tag(context.Background(), Input{Text: "anything"}); err == nil {
		t.Fatal("provider 500 should surface as an error")
	}
}
