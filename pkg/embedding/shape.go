package embedding

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrUnrecognizedShape is returned when a response body matches none of the known layouts.
var ErrUnrecognizedShape = errors.New("unrecognized embedding response shape")

// ShapeKind tags which response layout a body was decoded from.
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	// {"data":[{"embedding":[...]}, ...]} (OpenAI, Jina)
	ShapeDataArray
	// {"embedding":[...]}
	ShapeSingleVector
	// {"embedding":{"values":[...]}} (Gemini)
	ShapeValuesObject
	// [...] or [[...], ...]
	ShapeBareArray
	// {"data":{"embedding":[...]}} or {"data":{"data":[...]}}
	ShapeNestedData
	// {"embeddings":[[...], ...]} (Ollama /api/embed)
	ShapeEmbeddingsArray
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeDataArray:
		return "data_array"
	case ShapeSingleVector:
		return "single_vector"
	case ShapeValuesObject:
		return "values_object"
	case ShapeBareArray:
		return "bare_array"
	case ShapeNestedData:
		return "nested_data"
	case ShapeEmbeddingsArray:
		return "embeddings_array"
	default:
		return "unknown"
	}
}

// Decoded is the result of DecodeVectors. Vectors keep the order of the
// request's input texts.
type Decoded struct {
	Kind    ShapeKind
	Vectors [][]float32
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Embedding  json.RawMessage `json:"embedding"`
	Embeddings json.RawMessage `json:"embeddings"`
}

type dataItem struct {
	Embedding []float32 `json:"embedding"`
	Index     *int      `json:"index"`
}

// DecodeVectors recognises every response layout the supported providers
// produce. Emptiness and dimension are checked by the caller.
func DecodeVectors(body []byte) (*Decoded, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrUnrecognizedShape
	}

	if body[0] == '[' {
		if vectors, ok := decodeMatrixOrVector(body); ok {
			return &Decoded{Kind: ShapeBareArray, Vectors: vectors}, nil
		}
		return nil, ErrUnrecognizedShape
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrUnrecognizedShape
	}

	switch {
	case firstByte(env.Data) == '[':
		var items []dataItem
		if err := json.Unmarshal(env.Data, &items); err != nil || len(items) == 0 {
			return nil, ErrUnrecognizedShape
		}
		vectors := make([][]float32, len(items))
		for i, item := range items {
			pos := i
			if item.Index != nil && *item.Index >= 0 && *item.Index < len(items) {
				pos = *item.Index
			}
			vectors[pos] = item.Embedding
		}
		return &Decoded{Kind: ShapeDataArray, Vectors: vectors}, nil

	case firstByte(env.Data) == '{':
		var inner struct {
			Embedding []float32 `json:"embedding"`
			Data      []float32 `json:"data"`
		}
		if err := json.Unmarshal(env.Data, &inner); err != nil {
			return nil, ErrUnrecognizedShape
		}
		if inner.Embedding != nil {
			return &Decoded{Kind: ShapeNestedData, Vectors: [][]float32{inner.Embedding}}, nil
		}
		if inner.Data != nil {
			return &Decoded{Kind: ShapeNestedData, Vectors: [][]float32{inner.Data}}, nil
		}
		return nil, ErrUnrecognizedShape

	case firstByte(env.Embedding) == '[':
		var vector []float32
		if err := json.Unmarshal(env.Embedding, &vector); err != nil {
			return nil, ErrUnrecognizedShape
		}
		return &Decoded{Kind: ShapeSingleVector, Vectors: [][]float32{vector}}, nil

	case firstByte(env.Embedding) == '{':
		var values struct {
			Values []float32 `json:"values"`
		}
		if err := json.Unmarshal(env.Embedding, &values); err != nil || values.Values == nil {
			return nil, ErrUnrecognizedShape
		}
		return &Decoded{Kind: ShapeValuesObject, Vectors: [][]float32{values.Values}}, nil

	case firstByte(env.Embeddings) == '[':
		var vectors [][]float32
		if err := json.Unmarshal(env.Embeddings, &vectors); err != nil || len(vectors) == 0 {
			return nil, ErrUnrecognizedShape
		}
		return &Decoded{Kind: ShapeEmbeddingsArray, Vectors: vectors}, nil
	}

	return nil, ErrUnrecognizedShape
}

func decodeMatrixOrVector(raw []byte) ([][]float32, bool) {
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err == nil {
		return [][]float32{vector}, true
	}
	var matrix [][]float32
	if err := json.Unmarshal(raw, &matrix); err == nil && len(matrix) > 0 {
		return matrix, true
	}
	return nil, false
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
