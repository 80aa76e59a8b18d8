package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAreWireCompatible(t *testing.T) {
	in := payload{Name: "page", Count: 3}

	// go-json output must decode with encoding/json and vice versa: the
	// snapshot header pins a name, not an implementation.
	fast, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	var viaStd payload
	require.NoError(t, JSON{}.Unmarshal(fast, &viaStd))
	assert.Equal(t, in, viaStd)

	std, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var viaFast payload
	require.NoError(t, GoJSON{}.Unmarshal(std, &viaFast))
	assert.Equal(t, in, viaFast)
}

func TestMustMarshalPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustMarshal(JSON{}, make(chan int))
	})
}
