package payface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAll(t *testing.T) {
	assert.NoError(t, requireAll(map[string]string{"id": "a", "secret": "b"}))

	err := requireAll(map[string]string{"id": "a", "secret": "", "notify_url": ""})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, []string{"notify_url", "secret"}, argErr.Missing)
	assert.Contains(t, err.Error(), `["notify_url","secret"]`)
}

func TestInvalidMap(t *testing.T) {
	assert.Equal(t, `a=11, b="bb"`, invalidMap(map[string]interface{}{"a": 11, "b": "bb"}))
}

func TestNewConfigError(t *testing.T) {
	err := newConfigError("alipay", requireAll(map[string]string{"app_id": ""}))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "alipay", cfgErr.Provider)
	assert.Contains(t, cfgErr.Error(), `"app_id"`)
}
