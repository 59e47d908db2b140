package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "storefront-bot", false)

	Info().Str("order_id", "abc").Msg("Order created")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "Order created", line["message"])
	assert.Equal(t, "storefront-bot", line["service"])
	assert.Equal(t, "abc", line["order_id"])
	assert.Contains(t, line, "timestamp")
}

func TestInitWithWriter_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "storefront-bot", false)
	Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	InitWithWriter(&buf, "storefront-bot", true)
	buf.Reset()
	Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
