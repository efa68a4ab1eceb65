package openai

import (
	"context"
	"fmt"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
)

var audioMimeTypes = map[goopenai.SpeechResponseFormat]string{
	goopenai.SpeechResponseFormatMp3:  "audio/mpeg",
	goopenai.SpeechResponseFormatOpus: "audio/opus",
	goopenai.SpeechResponseFormatAac:  "audio/aac",
	goopenai.SpeechResponseFormatFlac: "audio/flac",
	goopenai.SpeechResponseFormatWav:  "audio/wav",
	goopenai.SpeechResponseFormatPcm:  "audio/pcm",
}

// AudioGenerator is the ai.TextToAudio of an OpenAI speech model.
type AudioGenerator struct {
	client  *Client
	modelID string
}

func (c *Client) AudioGenerator() *AudioGenerator {
	return &AudioGenerator{client: c, modelID: c.cfg.AudioModelID}
}

func (g *AudioGenerator) ServiceID() string { return g.client.cfg.ServiceID + "_audio" }
func (g *AudioGenerator) ModelID() string   { return g.modelID }

// GetAudioContent synthesises text. Defaults: voice alloy, mp3.
func (g *AudioGenerator) GetAudioContent(ctx context.Context, text string, settings *ai.TextToAudioSettings) (*contents.AudioContent, error) {
	if settings == nil {
		settings = &ai.TextToAudioSettings{}
	}
	voice := goopenai.SpeechVoice(settings.Voice)
	if voice == "" {
		voice = goopenai.VoiceAlloy
	}
	format := goopenai.SpeechResponseFormat(settings.ResponseFormat)
	if format == "" {
		format = goopenai.SpeechResponseFormatMp3
	}
	mime, ok := audioMimeTypes[format]
	if !ok {
		return nil, fmt.Errorf("[OpenAI] %w: unsupported audio format %q", ai.ErrInvalidRequest, format)
	}

	start := time.Now()
	resp, err := g.client.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(g.modelID),
		Input:          text,
		Voice:          voice,
		Instructions:   settings.Instructions,
		ResponseFormat: format,
		Speed:          settings.Speed,
	})
	if err != nil {
		err = classifyError(err)
		g.client.observeOperation("text_to_audio", g.modelID, time.Since(start), err, 0)
		return nil, err
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	g.client.observeOperation("text_to_audio", g.modelID, time.Since(start), err, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("[OpenAI] read audio: %w", err)
	}
	return &contents.AudioContent{Data: data, MimeType: mime}, nil
}
