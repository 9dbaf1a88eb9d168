package payface

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsDistinguishable(t *testing.T) {
	// 五类错误必须能通过errors.As区分，调用方据此决定重试/放行/报警
	var (
		argErr       *ArgumentError
		cfgErr       *ConfigError
		apiErr       *APIError
		verifyErr    *VerificationError
		transportErr *TransportError
	)

	err := error(&ArgumentError{Missing: []string{"fee"}})
	assert.True(t, errors.As(err, &argErr))
	assert.False(t, errors.As(err, &apiErr))

	err = &ConfigError{Provider: "alipay", Reason: "missing key"}
	assert.True(t, errors.As(err, &cfgErr))

	err = &APIError{Msg: "rejected", Raw: map[string]string{"code": "40004"}}
	assert.True(t, errors.As(err, &apiErr))
	assert.NotNil(t, apiErr.Raw)

	err = &VerificationError{}
	assert.True(t, errors.As(err, &verifyErr))
	assert.Nil(t, verifyErr.Receipt)

	err = &TransportError{Op: "query", Err: errors.New("connection reset")}
	assert.True(t, errors.As(err, &transportErr))
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("call failed: %w", &TransportError{Op: "alipay.trade.query", Err: cause})
	assert.True(t, errors.Is(err, cause))
}

func TestVerificationErrorMessage(t *testing.T) {
	assert.Contains(t, (&VerificationError{}).Error(), "no such order")

	withReceipt := &VerificationError{Receipt: &Receipt{Ok: false}}
	require.NotNil(t, withReceipt.Receipt)
	assert.Contains(t, withReceipt.Error(), "not in success state")
}
