package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("ecorp", NewScopedAPI("driver", rec))

	scoped.ReportWarning("attempt", "boom")
	scoped.ReportCount("polls", 3)

	require.Equal(t, []Report{
		{Kind: KindWarning, ID: "driver: ecorp: attempt", Params: []any{"boom"}},
		{Kind: KindCount, ID: "driver: ecorp: polls", Count: 3},
	}, rec.Reports())
	require.Len(t, rec.Find(KindWarning, "attempt"), 1)
	require.Empty(t, rec.Find(KindBroken, "attempt"))
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "gaentity-test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
