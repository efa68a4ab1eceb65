package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// ImageGenerator is the ai.TextToImage of an OpenAI image model.
type ImageGenerator struct {
	client  *Client
	modelID string
}

func (c *Client) ImageGenerator() *ImageGenerator {
	return &ImageGenerator{client: c, modelID: c.cfg.ImageModelID}
}

func (g *ImageGenerator) ServiceID() string { return g.client.cfg.ServiceID + "_image" }
func (g *ImageGenerator) ModelID() string   { return g.modelID }

// GenerateImage returns the image inline. Zero width or height selects
// 1024x1024.
func (g *ImageGenerator) GenerateImage(ctx context.Context, description string, width, height int) (*contents.ImageContent, error) {
	size := goopenai.CreateImageSize1024x1024
	if width > 0 && height > 0 {
		size = fmt.Sprintf("%dx%d", width, height)
	}

	start := time.Now()
	resp, err := g.client.api.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         description,
		Model:          g.modelID,
		N:              1,
		Size:           size,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	err = classifyError(err)
	g.client.observeOperation("text_to_image", g.modelID, time.Since(start), err, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	img := resp.Data[0]
	if img.B64JSON == "" {
		return &contents.ImageContent{URI: img.URL, MimeType: "image/png"}, nil
	}
	data, err := base64.StdEncoding.DecodeString(img.B64JSON)
	if err != nil {
		return nil, fmt.Errorf("[OpenAI] decode image: %w", err)
	}
	return &contents.ImageContent{Data: data, MimeType: "image/png"}, nil
}
