package perplexity

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/config"
)

// digitTokenizer maps "3 4 5" to ids 3, 4, 5.
type digitTokenizer struct{}

func (digitTokenizer) Encode(text string) []int64 {
	var ids []int64
	for _, f := range strings.Fields(text) {
		n, _ := strconv.Atoi(f)
		ids = append(ids, int64(n))
	}
	return ids
}

type fakeModel struct {
	vocab   int
	ctxLen  int
	predict func(prev int64) int64 // nil means uniform
	windows [][]int64
	err     error
}

func (m *fakeModel) ContextLength() int { return m.ctxLen }

func (m *fakeModel) Logits(ctx context.Context, ids []int64) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.windows = append(m.windows, append([]int64(nil), ids...))
	rows := make([][]float32, len(ids))
	for i, id := range ids {
		rows[i] = make([]float32, m.vocab)
		if m.predict != nil {
			rows[i][m.predict(id)] = 50
		}
	}
	return rows, nil
}

func sequence(n, vocab int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.Itoa(i % vocab)
	}
	return strings.Join(parts, " ")
}

func TestScoreUniformModelEqualsVocabularySize(t *testing.T) {
	model := &fakeModel{vocab: 16, ctxLen: 8}
	s := NewScorer(digitTokenizer{}, model, 4)

	ppl, err := s.Score(context.Background(), sequence(20, 16))
	require.NoError(t, err)
	assert.InDelta(t, 16.0, ppl, 1e-9)
}

func TestScoreSlidingWindows(t *testing.T) {
	model := &fakeModel{vocab: 16, ctxLen: 8}
	s := NewScorer(digitTokenizer{}, model, 4)

	_, err := s.Score(context.Background(), sequence(20, 16))
	require.NoError(t, err)

	require.Len(t, model.windows, 4)
	starts := []int64{0, 4, 8, 12}
	for i, w := range model.windows {
		assert.Equal(t, starts[i], w[0], "window %d", i)
		assert.Len(t, w, 8)
	}
}

func TestScoreConfidentModelIsNearOne(t *testing.T) {
	model := &fakeModel{vocab: 10, ctxLen: 6, predict: func(prev int64) int64 { return (prev + 1) % 10 }}
	s := NewScorer(digitTokenizer{}, model, 3)

	ppl, err := s.Score(context.Background(), sequence(25, 10))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ppl, 1e-6)
	assert.GreaterOrEqual(t, ppl, 1.0)
}

func TestScoreShortInput(t *testing.T) {
	s := NewScorer(digitTokenizer{}, &fakeModel{vocab: 4, ctxLen: 8}, 4)

	_, err := s.Score(context.Background(), "")
	assert.ErrorIs(t, err, ErrTooShort)
	_, err = s.Score(context.Background(), "1")
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestScoreModelFailure(t *testing.T) {
	boom := errors.New("inference failed")
	s := NewScorer(digitTokenizer{}, &fakeModel{vocab: 4, ctxLen: 8, err: boom}, 4)

	_, err := s.Score(context.Background(), "1 2 3")
	assert.ErrorIs(t, err, boom)
}

func TestScoreTokenOutsideVocabulary(t *testing.T) {
	s := NewScorer(digitTokenizer{}, &fakeModel{vocab: 4, ctxLen: 8}, 4)

	_, err := s.Score(context.Background(), "1 9")
	assert.ErrorContains(t, err, "outside vocabulary")
}

func TestLogSoftmaxAt(t *testing.T) {
	row := []float32{1, 2, 3}
	var sum float64
	for i := range row {
		sum += math.Exp(logSoftmaxAt(row, i))
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, math.Log(1.0/3.0), logSoftmaxAt([]float32{7, 7, 7}, 1), 1e-9)
}

func TestLazyScorerLoadsOnce(t *testing.T) {
	loads := 0
	l := &LazyScorer{enabled: true, load: func() (*Scorer, error) {
		loads++
		return NewScorer(digitTokenizer{}, &fakeModel{vocab: 16, ctxLen: 8}, 4), nil
	}}

	for i := 0; i < 3; i++ {
		ppl, err := l.Score(context.Background(), "1 2 3")
		require.NoError(t, err)
		assert.InDelta(t, 16.0, ppl, 1e-9)
	}
	assert.Equal(t, 1, loads)
}

func TestLazyScorerRetriesFailedLoad(t *testing.T) {
	loads := 0
	l := &LazyScorer{enabled: true, load: func() (*Scorer, error) {
		loads++
		return nil, errors.New("model file missing")
	}}

	_, err := l.Score(context.Background(), "1 2")
	assert.Error(t, err)
	_, err = l.Score(context.Background(), "1 2")
	assert.Error(t, err)
	assert.Equal(t, 2, loads)
}

func TestLazyScorerDisabled(t *testing.T) {
	l := NewLazyScorer(&config.PerplexityConfig{Enabled: false})

	_, err := l.Score(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestReadModelConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_type":"gpt2","n_positions":1024,"n_ctx":1024,"vocab_size":50257}`), 0o644))

	mc, err := ReadModelConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, mc.ContextLength())
	assert.Equal(t, 50257, mc.VocabSize)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"model_type":"gpt2"}`), 0o644))
	_, err = ReadModelConfig(bad)
	assert.Error(t, err)
}

func TestInputData(t *testing.T) {
	ids := []int64{5, 6, 7}

	got, err := inputData("input_ids", ids)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	got, err = inputData("attention_mask", ids)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1}, got)

	got, err = inputData("position_ids", ids)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, got)

	_, err = inputData("past_key_values", ids)
	assert.Error(t, err)
}

type closingModel struct {
	fakeModel
	closed int
}

func (m *closingModel) Close() error {
	m.closed++
	return nil
}

func TestLazyScorerClose(t *testing.T) {
	model := &closingModel{fakeModel: fakeModel{vocab: 4, ctxLen: 8}}
	l := &LazyScorer{enabled: true, load: func() (*Scorer, error) {
		return NewScorer(digitTokenizer{}, model, 4), nil
	}}

	require.NoError(t, l.Close())
	assert.Equal(t, 0, model.closed)

	_, err := l.Score(context.Background(), "1 2 3")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.Equal(t, 1, model.closed)
}
