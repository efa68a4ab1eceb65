package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

type fakeImages struct {
	img           *contents.ImageContent
	width, height int
}

func (f *fakeImages) ServiceID() string { return "images" }
func (f *fakeImages) ModelID() string   { return "image-model" }

func (f *fakeImages) GenerateImage(ctx context.Context, description string, width, height int) (*contents.ImageContent, error) {
	f.width, f.height = width, height
	return f.img, nil
}

type fakeAudio struct {
	voice string
	err   error
}

func (f *fakeAudio) ServiceID() string { return "audio" }
func (f *fakeAudio) ModelID() string   { return "audio-model" }

func (f *fakeAudio) GetAudioContent(ctx context.Context, text string, settings *ai.TextToAudioSettings) (*contents.AudioContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.voice = settings.Voice
	return &contents.AudioContent{Data: []byte("mp3"), MimeType: "audio/mpeg"}, nil
}

type savedObject struct {
	key, mime string
	data      []byte
}

type fakeSaver struct{ saved []savedObject }

func (f *fakeSaver) Save(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	f.saved = append(f.saved, savedObject{key: key, mime: mimeType, data: data})
	return "https://media.example/" + key, nil
}

func TestMediaPluginStoresInlineImages(t *testing.T) {
	images := &fakeImages{img: &contents.ImageContent{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}}
	saver := &fakeSaver{}
	p, err := newMediaPlugin(images, nil, saver)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	k, err := kernel.New(kernel.WithPlugins(p))
	require.NoError(t, err)
	res, err := invoke(t, k, "media", "generate_image", kernel.Arguments{"description": "a lighthouse"})
	require.NoError(t, err)

	require.Len(t, saver.saved, 1)
	obj := saver.saved[0]
	assert.True(t, strings.HasPrefix(obj.key, "images/"))
	assert.True(t, strings.HasSuffix(obj.key, ".png"))
	assert.Equal(t, "image/png", obj.mime)
	assert.Equal(t, "https://media.example/"+obj.key, res.String())
	assert.Equal(t, defaultImageSize, images.width)
	assert.Equal(t, defaultImageSize, images.height)
}

func TestMediaPluginReturnsHostedImages(t *testing.T) {
	images := &fakeImages{img: &contents.ImageContent{URI: "https://provider.example/img.png"}}
	p, err := newMediaPlugin(images, nil, nil)
	require.NoError(t, err)
	k, err := kernel.New(kernel.WithPlugins(p))
	require.NoError(t, err)

	res, err := invoke(t, k, "media", "generate_image", kernel.Arguments{"description": "x", "width": 512, "height": 256})
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example/img.png", res.String())
	assert.Equal(t, 512, images.width)
	assert.Equal(t, 256, images.height)
}

func TestMediaPluginSpeech(t *testing.T) {
	audio := &fakeAudio{}
	saver := &fakeSaver{}
	p, err := newMediaPlugin(nil, audio, saver)
	require.NoError(t, err)
	k, err := kernel.New(kernel.WithPlugins(p))
	require.NoError(t, err)

	_, err = invoke(t, k, "media", "speak", kernel.Arguments{"text": "hello", "voice": "alloy"})
	require.NoError(t, err)
	require.Len(t, saver.saved, 1)
	assert.True(t, strings.HasSuffix(saver.saved[0].key, ".mp3"))
	assert.Equal(t, "alloy", audio.voice)

	_, err = invoke(t, k, "media", "speak", kernel.Arguments{"text": "  "})
	assert.ErrorIs(t, err, kernel.ErrInvalidArguments)

	audio.err = errors.New("quota exceeded")
	_, err = invoke(t, k, "media", "speak", kernel.Arguments{"text": "hello"})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestPersistWithoutStore(t *testing.T) {
	_, err := persist(context.Background(), nil, "images", "", []byte("x"), "")
	assert.Error(t, err)

	_, err = persist(context.Background(), nil, "images", "", nil, "")
	assert.Error(t, err)
}
