package emotion

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

const detectPrompt = "List the facial emotions visible in this video as a short " +
	"comma-separated list of lowercase words (for example: happy, calm). " +
	"Reply with only the list, or the single word neutral if no face is clear."

// VertexVision runs a multimodal Gemini prompt over the raw clip bytes.
type VertexVision struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexVision(ctx context.Context, projectID, location, modelName string) (*VertexVision, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexVision{client: c, model: c.GenerativeModel(modelName)}, nil
}

func (v *VertexVision) Close() error { return v.client.Close() }

func (v *VertexVision) Detect(ctx context.Context, video []byte, mimeType string) ([]string, error) {
	if mimeType == "" {
		mimeType = "video/webm"
	}

	it := v.model.GenerateContentStream(ctx,
		vertexgenai.Blob{MIMEType: mimeType, Data: video},
		vertexgenai.Text(detectPrompt),
	)

	var b strings.Builder
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
	}

	return parseList(b.String()), nil
}

// parseList splits the model's comma list into clean lowercase labels.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		label := strings.ToLower(strings.TrimSpace(strings.Trim(part, ".")))
		if label != "" {
			out = append(out, label)
		}
	}
	if len(out) == 0 {
		out = []string{"neutral"}
	}
	return out
}
