package minutes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOllama is a minimal in-process stand-in for the generation
// service. It records the last completion request for assertions.
type fakeOllama struct {
	mu          sync.Mutex
	tags        []string
	response    string
	generateRC  int
	lastRequest generateRequest
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		type model struct {
			Name string `json:"name"`
		}
		models := make([]model, 0, len(f.tags))
		for _, name := range f.tags {
			models = append(models, model{Name: name})
		}
		json.NewEncoder(w).Encode(map[string]any{"models": models})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewDecoder(r.Body).Decode(&f.lastRequest)
		if f.generateRC != 0 {
			http.Error(w, "boom", f.generateRC)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": f.response})
	})
	return mux
}

func (f *fakeOllama) last() generateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequest
}

func newTestGenerator(t *testing.T, baseURL string, mutate func(*GeneratorConfig)) *Generator {
	t.Helper()

	cfg := GeneratorConfig{
		BaseURL: baseURL,
		Model:   "llama3",
		Now:     fixedClock(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewGenerator(context.Background(), cfg, zap.NewNop())
}

func TestGenerateUsesModelWhenAvailable(t *testing.T) {
	t.Parallel()

	fake := &fakeOllama{
		tags:     []string{"llama3"},
		response: "# Протокол встречи\n\n## Тема: бюджет\n\nОбсудили бюджет.",
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, nil)
	doc, source := g.Generate(context.Background(), "Встреча 15 мая обсуждение бюджета.")

	require.Equal(t, SourceModel, source)
	require.Contains(t, doc.Text(), "# Протокол встречи")

	req := fake.last()
	require.Equal(t, "llama3", req.Model)
	require.False(t, req.Stream)
	require.InDelta(t, 0.1, req.Options.Temperature, 1e-9)
	require.InDelta(t, 0.9, req.Options.TopP, 1e-9)
	require.Contains(t, req.Prompt, "Встреча 15 мая обсуждение бюджета.")
	require.NotContains(t, req.Prompt, transcriptPlaceholder)
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	t.Parallel()

	fake := &fakeOllama{tags: []string{"llama3"}, generateRC: http.StatusInternalServerError}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, nil)
	doc, source := g.Generate(context.Background(), "Встреча 15 мая обсуждение бюджета.")

	require.Equal(t, SourceFallback, source)
	require.Contains(t, doc.Text(), "Тема: бюджета")
}

func TestGenerateFallsBackWhenUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	g := newTestGenerator(t, base, nil)
	doc, source := g.Generate(context.Background(), "")

	require.Equal(t, SourceFallback, source)
	require.False(t, doc.Empty())
}

func TestGenerateFallsBackOnEmptyModelOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeOllama{tags: []string{"llama3"}, response: "   "}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, nil)
	_, source := g.Generate(context.Background(), "Обсудили планы на квартал.")

	require.Equal(t, SourceFallback, source)
}

func TestGeneratorSubstitutesMissingModel(t *testing.T) {
	t.Parallel()

	fake := &fakeOllama{tags: []string{"mistral"}, response: "## Итоги"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, nil)
	_, source := g.Generate(context.Background(), "Обсудили планы.")

	require.Equal(t, SourceModel, source)
	require.Equal(t, "mistral", fake.last().Model)
}

func TestGenerateDisabledNeverCallsService(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, func(cfg *GeneratorConfig) { cfg.Disabled = true })
	doc, source := g.Generate(context.Background(), "Встреча 15 мая обсуждение бюджета.")

	require.Equal(t, SourceFallback, source)
	require.Contains(t, doc.Text(), "Протокол встречи от 15 мая")
}

func TestOllamaTagsParsesNames(t *testing.T) {
	t.Parallel()

	fake := &fakeOllama{tags: []string{"llama3", "mistral"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	names, err := NewOllamaClient(srv.URL).Tags(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"llama3", "mistral"}, names)
}

func TestOllamaGenerateReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL).Generate(context.Background(), "llama3", "prompt", GenerateOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.Contains(t, err.Error(), "model not found")
}
