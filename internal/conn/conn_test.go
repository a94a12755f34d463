package conn

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarex-dev/sarex-go/internal/model"
	"github.com/sarex-dev/sarex-go/internal/render"
)

const reuseInput = `[
	{"connector_type":"calls","source_component_values":{"name":"A"},"target_component_values":{"name":"B"}},
	{"connector_type":"calls","source_component_values":{"name":"A"},"target_component_values":{"name":"C"}}
]`

type stubEngine struct{}

func (stubEngine) Render(ctx context.Context, dot []byte, format render.Format) ([]byte, error) {
	return nil, &model.RenderError{Engine: "stub", Err: errors.New("unavailable")}
}

func sequential() model.IDGenerator {
	return &model.SequentialGenerator{Prefix: "c"}
}

func setup(t *testing.T, input string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	in := filepath.Join(dir, "cis.json")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))
	return in, filepath.Join(dir, "out")
}

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("JSON", func(t *testing.T) {
		in, out := setup(t, reuseInput)

		result, err := NewConverter(WithIDGenerator(sequential)).Convert(ctx, in, out, "json")
		require.NoError(t, err)
		assert.Equal(t, &Result{Instances: 2, Components: 3, Connectors: 2, Format: render.FormatJSON}, result)

		data, err := os.ReadFile(out)
		require.NoError(t, err)

		var m model.Model
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Len(t, m.Components, 3)
		assert.Equal(t, "c1", m.Connectors[1].SourceComponentID)
		assert.Equal(t, "c3", m.Connectors[1].TargetComponentID)
	})

	t.Run("DOT", func(t *testing.T) {
		in, out := setup(t, reuseInput)

		_, err := NewConverter(WithIDGenerator(sequential)).Convert(ctx, in, out, "dot")
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"c1" -> "c3" [label="calls"];`)
	})

	t.Run("IndependentBuildsStartFresh", func(t *testing.T) {
		in, out := setup(t, reuseInput)
		c := NewConverter(WithIDGenerator(sequential))

		_, err := c.Convert(ctx, in, out, "json")
		require.NoError(t, err)
		first, _ := os.ReadFile(out)

		_, err = c.Convert(ctx, in, out, "json")
		require.NoError(t, err)
		second, _ := os.ReadFile(out)

		assert.Equal(t, first, second)
	})

	t.Run("ParseError", func(t *testing.T) {
		in, out := setup(t, `[{"connector_type":"calls"}]`)

		_, err := NewConverter().Convert(ctx, in, out, "json")

		var parseErr *model.ParseError
		assert.True(t, errors.As(err, &parseErr))
		_, statErr := os.Stat(out)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("MissingInput", func(t *testing.T) {
		err := Convert(ctx, filepath.Join(t.TempDir(), "missing.json"), filepath.Join(t.TempDir(), "out"), "json")

		var ioErr *model.IOError
		assert.True(t, errors.As(err, &ioErr))
	})

	t.Run("RenderError", func(t *testing.T) {
		in, out := setup(t, reuseInput)

		_, err := NewConverter(WithEngine(stubEngine{})).Convert(ctx, in, out, "png")

		var renderErr *model.RenderError
		assert.True(t, errors.As(err, &renderErr))
		_, statErr := os.Stat(out)
		assert.True(t, os.IsNotExist(statErr))
	})
}
