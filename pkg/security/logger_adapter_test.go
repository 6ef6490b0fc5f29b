package security

import (
	"errors"
	"testing"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_RedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Error("gateway call failed",
		ports.String("request", "<CardNumber>4111111111111111</CardNumber><CardCVV>123</CardCVV>"),
		ports.Any("raw", []byte("<AccountAuth>abc</AccountAuth>")),
		ports.Err(errors.New("bad <CardCVV>999</CardCVV>")),
		ports.String("cvv", "123"),
		ports.Int("attempt", 1),
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "<CardNumber>***1111</CardNumber><CardCVV>***</CardCVV>", fields["request"])
	assert.Equal(t, "<AccountAuth>***</AccountAuth>", fields["raw"])
	assert.Equal(t, "bad <CardCVV>***</CardCVV>", fields["error"])
	assert.Equal(t, "***", fields["cvv"])
	assert.EqualValues(t, 1, fields["attempt"])
}
