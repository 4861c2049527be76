package eventloop

import (
	"testing"

	"github.com/grafana/sobek"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueToJS(t *testing.T) {
	t.Parallel()
	rt := sobek.New()

	t.Run("string", func(t *testing.T) {
		v := StringValue([]byte("hello")).toJS(rt)
		assert.Equal(t, "hello", v.String())
	})

	t.Run("invalid utf8 collapses to empty string", func(t *testing.T) {
		v := StringValue([]byte{0xff, 0xfe, 'a'}).toJS(rt)
		assert.Equal(t, "", v.String())
	})

	t.Run("number", func(t *testing.T) {
		v := NumberValue(42).toJS(rt)
		require.Equal(t, int64(42), v.ToInteger())
	})

	t.Run("negative number", func(t *testing.T) {
		v := NumberValue(-7).toJS(rt)
		assert.Equal(t, int64(-7), v.ToInteger())
	})

	t.Run("undefined", func(t *testing.T) {
		assert.True(t, sobek.IsUndefined(Undefined().toJS(rt)))
	})
}
