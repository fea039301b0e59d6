package client

import "context"

// VisionClient sends one image and a prompt to a vision model and returns its plain-text reply.
// imgB64 is standard base64 of a PNG.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
