package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextBlock(t *testing.T) {
	b := TextBlock("read this bill")
	assert.Equal(t, "text", b.Type)
	assert.Equal(t, "read this bill", b.Text)
}

func TestImageBlock(t *testing.T) {
	b := ImageBlock("image/png", []byte{0x89, 0x50})
	assert.Equal(t, "image", b.Type)
	assert.Equal(t, "image/png", b.MediaType)
	assert.Equal(t, []byte{0x89, 0x50}, b.Data)
}

func TestToSDKMessages_MixedContent(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{
			Role: "user",
			Content: []ContentBlock{
				ImageBlock("image/jpeg", []byte("jpegbytes")),
				TextBlock("extract the line items"),
			},
		},
		{
			Role:    "assistant",
			Content: []ContentBlock{TextBlock("{\"charges\":[]}")},
		},
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	require.Len(t, msgs[0].Content, 2)
	assert.NotNil(t, msgs[0].Content[0].OfImage)
	assert.NotNil(t, msgs[0].Content[1].OfText)
	assert.Equal(t, "assistant", string(msgs[1].Role))
}

func TestNewClient(t *testing.T) {
	c := NewClient("sk-test")
	assert.NotNil(t, c)
}
