package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init("info", "xml")
	require.Error(t, err)

	_, err = Init("loud", "json")
	require.Error(t, err)
}

func TestInitSetsGlobal(t *testing.T) {
	l, err := Init("debug", "console")
	require.NoError(t, err)
	require.Same(t, l, L())
	require.NotNil(t, Named("hydrator"))

	Set(zap.NewNop())
	require.NotSame(t, l, L())
}
