package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collomatique/colloml/pkg/colloml"
)

func TestParseArgs(t *testing.T) {
	t.Run("literals", func(t *testing.T) {
		values, err := parseArgs([]string{"42", "-3", "true", "false", "none", "monday", `"quoted text"`})
		require.NoError(t, err)
		assert.Equal(t, []colloml.Value{
			colloml.IntValue(42),
			colloml.IntValue(-3),
			colloml.BoolValue(true),
			colloml.BoolValue(false),
			colloml.NoneValue(),
			colloml.StringValue("monday"),
			colloml.StringValue("quoted text"),
		}, values)
	})

	t.Run("malformed literals are reported", func(t *testing.T) {
		for _, arg := range []string{"12x", "-", `"unterminated`} {
			_, err := parseArgs([]string{arg})
			require.Error(t, err, "argument %q", arg)
		}
	})
}

func TestSplitCall(t *testing.T) {
	module, function, err := splitCall("rules::balanced")
	require.NoError(t, err)
	assert.Equal(t, "rules", module)
	assert.Equal(t, "balanced", function)

	module, function, err = splitCall("balanced")
	require.NoError(t, err)
	assert.Empty(t, module)
	assert.Equal(t, "balanced", function)

	for _, call := range []string{"::f", "m::", "a::b::c"} {
		_, _, err := splitCall(call)
		require.Error(t, err, "call %q", call)
	}
}
