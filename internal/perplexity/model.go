package perplexity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"document-chat/internal/config"
)

// ModelConfig is the subset of a Hugging Face config.json the scorer needs.
type ModelConfig struct {
	NPositions int `json:"n_positions"`
	NCtx       int `json:"n_ctx"`
	VocabSize  int `json:"vocab_size"`
}

// ContextLength is the longest sequence the model accepts.
func (c ModelConfig) ContextLength() int {
	if c.NPositions > 0 {
		return c.NPositions
	}
	return c.NCtx
}

func ReadModelConfig(path string) (ModelConfig, error) {
	var mc ModelConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return mc, err
	}
	if err := json.Unmarshal(data, &mc); err != nil {
		return mc, fmt.Errorf("decode model config: %w", err)
	}
	if mc.ContextLength() <= 0 || mc.VocabSize <= 0 {
		return mc, fmt.Errorf("model config %s lacks n_positions or vocab_size", path)
	}
	return mc, nil
}

// ONNXModel runs a causal language model exported to ONNX.
type ONNXModel struct {
	mu sync.Mutex

	session    *ort.DynamicAdvancedSession
	inputNames []string
	config     ModelConfig
}

// LoadONNXModel initializes the onnxruntime environment and opens the model.
func LoadONNXModel(cfg *config.PerplexityConfig) (*ONNXModel, error) {
	mc, err := ReadModelConfig(cfg.ModelConfigPath)
	if err != nil {
		return nil, err
	}

	if cfg.ONNXLibPath != "" {
		ort.SetSharedLibraryPath(cfg.ONNXLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, cfg.InputNames, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx new session: %w", err)
	}
	return &ONNXModel{session: session, inputNames: cfg.InputNames, config: mc}, nil
}

func (m *ONNXModel) ContextLength() int {
	return m.config.ContextLength()
}

func (m *ONNXModel) Logits(ctx context.Context, ids []int64) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(ids)
	if n == 0 || n > m.ContextLength() {
		return nil, fmt.Errorf("sequence of %d tokens does not fit context of %d", n, m.ContextLength())
	}

	shape := ort.NewShape(1, int64(n))
	inputs := make([]ort.Value, 0, len(m.inputNames))
	for _, name := range m.inputNames {
		data, err := inputData(name, ids)
		if err != nil {
			return nil, err
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor: %w", err)
		}
		defer t.Destroy()
		inputs = append(inputs, t)
	}

	vocab := m.config.VocabSize
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n), int64(vocab)))
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	m.mu.Lock()
	err = m.session.Run(inputs, []ort.Value{output})
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	// the tensor's memory is released on return
	buf := make([]float32, n*vocab)
	copy(buf, output.GetData())
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = buf[i*vocab : (i+1)*vocab]
	}
	return rows, nil
}

// Close releases the onnxruntime session.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Destroy()
}

func inputData(name string, ids []int64) ([]int64, error) {
	data := make([]int64, len(ids))
	switch name {
	case "input_ids":
		copy(data, ids)
	case "attention_mask":
		for i := range data {
			data[i] = 1
		}
	case "position_ids":
		for i := range data {
			data[i] = int64(i)
		}
	default:
		return nil, fmt.Errorf("unsupported model input %q", name)
	}
	return data, nil
}
