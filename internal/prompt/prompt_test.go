package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		out, err := Render("Describe the scene.", nil)
		require.NoError(t, err)
		assert.Equal(t, "Describe the scene.", out)
	})

	t.Run("variables substituted", func(t *testing.T) {
		out, err := Render("Watch for {{.object}} near the {{.zone}}.", map[string]any{
			"object": "smoke",
			"zone":   "loading dock",
		})
		require.NoError(t, err)
		assert.Equal(t, "Watch for smoke near the loading dock.", out)
	})

	t.Run("helper funcs", func(t *testing.T) {
		out, err := Render("{{upper .label}}: {{join \", \" .items}}", map[string]any{
			"label": "alert",
			"items": []any{"fire", "smoke"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ALERT: fire, smoke", out)
	})

	t.Run("default for missing value", func(t *testing.T) {
		out, err := Render("{{default \"anything unusual\" .object}}", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "anything unusual", out)
	})

	t.Run("parse error surfaces", func(t *testing.T) {
		_, err := Render("{{.unclosed", nil)
		assert.Error(t, err)
	})

	t.Run("unset parameter is an error", func(t *testing.T) {
		_, err := Render("Watch for {{.object}}.", map[string]any{})
		assert.Error(t, err)
	})
}
