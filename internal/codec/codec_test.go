package codec_test

import (
	"testing"

	"github.com/AndrewDonelson/savestate/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotDoc struct {
	Player string   `json:"player" msgpack:"player"`
	Index  int      `json:"index" msgpack:"index"`
	Data   []byte   `json:"data" msgpack:"data"`
	Names  []string `json:"names" msgpack:"names"`
}

func TestJSONCodec(t *testing.T) {
	c := codec.JSON{}
	orig := slotDoc{Player: "Alice", Index: 0, Data: []byte{1, 2, 3}, Names: []string{"Lamp1"}}
	b, err := c.Marshal(orig)
	require.NoError(t, err)

	var got slotDoc
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, orig, got)
	assert.Equal(t, "json", c.Name())
}

func TestMsgPackCodec(t *testing.T) {
	c := codec.MsgPack{}
	orig := slotDoc{Player: "Bob", Index: 2, Data: []byte{0xff}, Names: []string{"Chest3", "Door"}}
	b, err := c.Marshal(orig)
	require.NoError(t, err)

	var got slotDoc
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, orig, got)
	assert.Equal(t, "msgpack", c.Name())
}

func TestDefaultIsMsgPack(t *testing.T) {
	assert.Equal(t, "msgpack", codec.Default.Name())
}

func TestByName(t *testing.T) {
	c, err := codec.ByName("")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	c, err = codec.ByName(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = codec.ByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	_, err = codec.ByName("gob")
	assert.Error(t, err)
}

func TestUnmarshal_Garbage(t *testing.T) {
	var got slotDoc
	assert.Error(t, codec.JSON{}.Unmarshal([]byte("{"), &got))
	assert.Error(t, codec.MsgPack{}.Unmarshal([]byte{0xc1}, &got))
}
