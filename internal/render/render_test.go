package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudshipai/gitconfd/internal/materializer"
)

func envWithData(data map[string]interface{}) materializer.Environment {
	return materializer.Environment{Name: "TEST", ConfigData: data}
}

func TestRender_LenientMissingVariableRendersEmpty(t *testing.T) {
	out, err := Render("hello {{missing}}", envWithData(map[string]interface{}{}), false)
	require.NoError(t, err)
	require.Equal(t, "hello ", out)
}

func TestRender_StrictMissingVariableFails(t *testing.T) {
	_, err := Render("hello {{missing}}", envWithData(map[string]interface{}{}), true)
	require.Error(t, err)
	require.True(t, materializer.IsBadTemplate(err))
}

func TestRender_StrictPresentVariableSucceeds(t *testing.T) {
	out, err := Render("hello {{name}}", envWithData(map[string]interface{}{"name": "world"}), true)
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}

func TestRender_StrictDottedPath(t *testing.T) {
	data := map[string]interface{}{
		"service": map[string]interface{}{"port": float64(8080)},
	}
	out, err := Render("port: {{service.port}}", envWithData(data), true)
	require.NoError(t, err)
	require.Equal(t, "port: 8080", out)

	_, err = Render("port: {{service.missing}}", envWithData(data), true)
	require.Error(t, err)
	require.True(t, materializer.IsBadTemplate(err))
}
