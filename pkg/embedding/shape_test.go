package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVectors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind ShapeKind
		want [][]float32
	}{
		{
			name: "openai data array",
			body: `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}],"model":"m"}`,
			kind: ShapeDataArray,
			want: [][]float32{{0.1, 0.2}},
		},
		{
			name: "data array reordered by index",
			body: `{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`,
			kind: ShapeDataArray,
			want: [][]float32{{1}, {2}},
		},
		{
			name: "single vector",
			body: `{"embedding":[1,2,3]}`,
			kind: ShapeSingleVector,
			want: [][]float32{{1, 2, 3}},
		},
		{
			name: "gemini values object",
			body: `{"embedding":{"values":[0.5,-0.5]}}`,
			kind: ShapeValuesObject,
			want: [][]float32{{0.5, -0.5}},
		},
		{
			name: "bare vector",
			body: ` [3, 4] `,
			kind: ShapeBareArray,
			want: [][]float32{{3, 4}},
		},
		{
			name: "bare matrix",
			body: `[[1,0],[0,1]]`,
			kind: ShapeBareArray,
			want: [][]float32{{1, 0}, {0, 1}},
		},
		{
			name: "nested data embedding",
			body: `{"data":{"embedding":[7,8]}}`,
			kind: ShapeNestedData,
			want: [][]float32{{7, 8}},
		},
		{
			name: "nested data data",
			body: `{"data":{"data":[9]}}`,
			kind: ShapeNestedData,
			want: [][]float32{{9}},
		},
		{
			name: "ollama embeddings",
			body: `{"model":"nomic-embed-text","embeddings":[[0.25,0.75]]}`,
			kind: ShapeEmbeddingsArray,
			want: [][]float32{{0.25, 0.75}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeVectors([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, decoded.Kind)
			assert.Equal(t, tt.want, decoded.Vectors)
		})
	}
}

func TestDecodeVectors_Unrecognized(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`{"result":"ok"}`,
		`{"data":[]}`,
		`{"embedding":"abc"}`,
		`{"embedding":{"vals":[1]}}`,
		`["a","b"]`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeVectors([]byte(body))
			assert.ErrorIs(t, err, ErrUnrecognizedShape)
		})
	}
}
