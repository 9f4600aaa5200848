package browser

import (
	"testing"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestJsString(t *testing.T) {
	require.Equal(t, `"input[id=\"txtControlNo\"]"`, jsString(`input[id="txtControlNo"]`))
	require.Equal(t, `"td > a"`, jsString("td > a"))
}

func TestLauncherDefaults(t *testing.T) {
	launcher := NewChromedpLauncher(ChromedpOptions{Headless: true}, telemetry.Nop{})
	require.Equal(t, 30*time.Second, launcher.opts.ActionTimeout)
	require.Equal(t, 1366, launcher.opts.WindowWidth)
	require.Equal(t, 900, launcher.opts.WindowHeight)

	base := len(launcher.allocatorOptions())

	launcher = NewChromedpLauncher(ChromedpOptions{
		ExecPath:  "/usr/bin/chromium",
		UserAgent: "test-agent",
		Locale:    "en-US",
	}, telemetry.Nop{})
	require.Equal(t, base+3, len(launcher.allocatorOptions()))
}
