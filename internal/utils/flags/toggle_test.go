package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestAddToggleFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name            string
		defaultValue    bool
		arguments       []string
		expectedValue   bool
		expectedChanged bool
	}{
		{name: "DefaultFalse", arguments: []string{}},
		{name: "DefaultTrue", defaultValue: true, arguments: []string{}, expectedValue: true},
		{name: "ImplicitTrue", arguments: []string{"--color"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitYes", arguments: []string{"--color=yes"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitTrueUppercase", arguments: []string{"--color=TRUE"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitNo", defaultValue: true, arguments: []string{"--color=no"}, expectedChanged: true},
		{name: "ExplicitOff", defaultValue: true, arguments: []string{"--color=off"}, expectedChanged: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}
			var colorEnabled bool
			AddToggleFlag(command.Flags(), &colorEnabled, "color", testCase.defaultValue, "Colorize output.")

			require.NoError(t, command.ParseFlags(testCase.arguments))
			require.Equal(t, testCase.expectedValue, colorEnabled)
			require.Equal(t, testCase.expectedChanged, command.Flags().Lookup("color").Changed)
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(t *testing.T) {
	command := &cobra.Command{}
	var colorEnabled bool
	AddToggleFlag(command.Flags(), &colorEnabled, "color", false, "Colorize output.")

	require.Error(t, command.ParseFlags([]string{"--color=maybe"}))
	require.False(t, colorEnabled)
	require.False(t, command.Flags().Lookup("color").Changed)
}

func TestAddToggleFlagUsageHighlightsDefault(t *testing.T) {
	command := &cobra.Command{}
	var colorEnabled bool
	AddToggleFlag(command.Flags(), &colorEnabled, "color", true, "Colorize output.")

	require.Equal(t, "`<YES|no>` Colorize output.", command.Flags().Lookup("color").Usage)
}
