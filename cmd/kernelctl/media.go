package main

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

const (
	defaultImageSize = 1024
	defaultMediaMime = "application/octet-stream"
)

// mediaSaver is satisfied by *minio.MediaStore.
type mediaSaver interface {
	Save(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}

type imageInput struct {
	Description string `json:"description" jsonschema:"description=What the image should show"`
	Width       int    `json:"width,omitempty" jsonschema:"description=Width in pixels. Defaults to 1024"`
	Height      int    `json:"height,omitempty" jsonschema:"description=Height in pixels. Defaults to 1024"`
}

type speechInput struct {
	Text  string `json:"text" jsonschema:"description=Text to speak"`
	Voice string `json:"voice,omitempty" jsonschema:"description=Voice name"`
}

// newMediaPlugin returns the "media" plugin. Generated media is written to
// store and the functions return the link to it. Either generator may be
// nil, its function is left out then.
func newMediaPlugin(images ai.TextToImage, audio ai.TextToAudio, store mediaSaver) (*kernel.Plugin, error) {
	var fns []kernel.Function

	if images != nil {
		fn, err := kernel.NewFunction("generate_image", "Generates an image and returns a link to it",
			func(ctx context.Context, in imageInput) (string, error) {
				if strings.TrimSpace(in.Description) == "" {
					return "", fmt.Errorf("%w: description cannot be empty", kernel.ErrInvalidArguments)
				}
				w, h := in.Width, in.Height
				if w <= 0 {
					w = defaultImageSize
				}
				if h <= 0 {
					h = defaultImageSize
				}
				img, err := images.GenerateImage(ctx, in.Description, w, h)
				if err != nil {
					return "", err
				}
				return persist(ctx, store, "images", img.URI, img.Data, img.MimeType)
			})
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	if audio != nil {
		fn, err := kernel.NewFunction("speak", "Turns text into speech and returns a link to the audio",
			func(ctx context.Context, in speechInput) (string, error) {
				if strings.TrimSpace(in.Text) == "" {
					return "", fmt.Errorf("%w: text cannot be empty", kernel.ErrInvalidArguments)
				}
				clip, err := audio.GetAudioContent(ctx, in.Text, &ai.TextToAudioSettings{Voice: in.Voice})
				if err != nil {
					return "", err
				}
				return persist(ctx, store, "audio", clip.URI, clip.Data, clip.MimeType)
			})
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	return kernel.NewPlugin("media", "Image and speech generation", fns...)
}

// persist stores inline data under prefix and returns its link. Content the
// provider already hosts is returned as is.
func persist(ctx context.Context, store mediaSaver, prefix, uri string, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		if uri == "" {
			return "", fmt.Errorf("provider returned no %s content", prefix)
		}
		return uri, nil
	}
	if store == nil {
		return "", fmt.Errorf("no media store configured for inline %s content", prefix)
	}
	if mimeType == "" {
		mimeType = defaultMediaMime
	}
	key := prefix + "/" + uuid.NewString() + extension(mimeType)
	return store.Save(ctx, key, data, mimeType)
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "audio/mpeg":
		return ".mp3"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
