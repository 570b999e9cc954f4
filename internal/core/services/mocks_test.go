package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-research/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

const testDims = 16

// mockLLM replays scripted replies in order; the last reply repeats.
type mockLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	temps   []float64
}

func newMockLLM(replies ...string) *mockLLM {
	return &mockLLM{replies: replies}
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.temps = append(m.temps, opts.Temperature)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Content)
	}
	return m.Generate(ctx, b.String(), driven.GenerateOptions{})
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[i]
}

// mockEmbedder hashes words into a small bag-of-words vector.
// Texts listed in vectors get a fixed embedding instead.
type mockEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	queries    []string
	err        error
	batchFails int
	batches    int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	v := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%(testDims-1)]++
	}
	v[testDims-1] = 0.5
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if m.err != nil {
		return nil, m.err
	}
	if m.batchFails > 0 {
		m.batchFails--
		return nil, errors.New("embedding backend timeout")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return testDims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) queryLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// brokenStore fails every call.
type brokenStore struct{}

var errDiskGone = errors.New("disk gone")

func (brokenStore) Add(context.Context, []driven.VectorRecord) error { return errDiskGone }
func (brokenStore) Query(context.Context, []float32, int) ([]driven.VectorHit, error) {
	return nil, errDiskGone
}
func (brokenStore) Count(context.Context) (int, error)        { return 0, errDiskGone }
func (brokenStore) ReplaceSource(context.Context, string, []driven.VectorRecord) error {
	return errDiskGone
}
func (brokenStore) DeleteSource(context.Context, string) error { return errDiskGone }
func (brokenStore) DeleteAll(context.Context) error            { return errDiskGone }
func (brokenStore) Close() error                               { return nil }

// gatedEmbedder blocks Embed until release is closed.
type gatedEmbedder struct {
	*mockEmbedder
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{
		mockEmbedder: newMockEmbedder(),
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (g *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.mockEmbedder.Embed(ctx, text)
}

// newTestIndex returns an index over a fresh in-memory vector store.
func newTestIndex() (*EvidenceIndex, *mockEmbedder) {
	emb := newMockEmbedder()
	return NewEvidenceIndex(emb, memory.NewVectorStore(0)), emb
}

// testChunks builds n chunks of distinct text for sourceID.
func testChunks(sourceID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:       sourceID + "-" + string(rune('a'+i)),
			SourceID: sourceID,
			Text:     t,
			Position: i,
		}
	}
	return chunks
}

var corpus = []string{
	"Solar panels convert sunlight into electricity using photovoltaic cells.",
	"Wind turbines generate power from moving air across their blades.",
	"Battery storage smooths the output of intermittent renewable sources.",
	"Photovoltaic efficiency has improved steadily over the last decade.",
	"Grid operators balance supply and demand in real time.",
}
