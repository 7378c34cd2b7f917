package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"camguard/internal/config"
	"camguard/internal/embedding"
	"camguard/internal/model"

	"gocv.io/x/gocv"
)

var (
	// ErrDetection wraps every failure to get an answer from the face service.
	ErrDetection = errors.New("face detection failed")
	// ErrNoFace is returned when a reference image contains no face.
	ErrNoFace = errors.New("no face found")
)

// FaceClient talks to the face detection and embedding service.
type FaceClient struct {
	baseURL string
	client  *http.Client
}

// NewFaceClient creates a client for the configured detector URL.
func NewFaceClient(config *config.Config) *FaceClient {
	timeout := config.DetectorTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FaceClient{
		baseURL: strings.TrimSuffix(config.DetectorURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// faceResult is one face as returned by the service. Loc is
// [top, right, bottom, left] in pixels of the submitted image.
type faceResult struct {
	Loc [4]int    `json:"loc"`
	Vec []float64 `json:"vec"`
}

type facesResponse struct {
	Faces []faceResult `json:"faces"`
}

// DetectFaces locates the faces in an RGB frame and returns their boxes and
// embeddings in the frame's coordinates.
func (c *FaceClient) DetectFaces(ctx context.Context, rgb gocv.Mat) ([]model.Detection, error) {
	if rgb.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrDetection)
	}
	return c.DetectPixels(ctx, rgb.ToBytes(), rgb.Cols(), rgb.Rows())
}

// DetectPixels is DetectFaces for a packed 8-bit RGB buffer.
func (c *FaceClient) DetectPixels(ctx context.Context, pixels []byte, width, height int) ([]model.Detection, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*3 {
		return nil, fmt.Errorf("%w: %d bytes do not form a %dx%d RGB image", ErrDetection, len(pixels), width, height)
	}

	query := url.Values{}
	query.Set("width", strconv.Itoa(width))
	query.Set("height", strconv.Itoa(height))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/faces/detect?"+query.Encode(), bytes.NewReader(pixels))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrDetection, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseFaces(body)
}

// EmbedImageFile computes the embedding of the first face in an image file.
func (c *FaceClient) EmbedImageFile(ctx context.Context, path string) (embedding.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference image: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/faces/embed", filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	detections, err := parseFaces(body)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFace, filepath.Base(path))
	}
	return detections[0].Embedding, nil
}

// postMultipartImage posts the image as the "file" form field.
func (c *FaceClient) postMultipartImage(ctx context.Context, endpoint, filename string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrDetection, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *FaceClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrDetection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrDetection, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrDetection, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func parseFaces(body []byte) ([]model.Detection, error) {
	var resp facesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrDetection, err)
	}

	detections := make([]model.Detection, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.Vec) == 0 {
			return nil, fmt.Errorf("%w: face %d has an empty embedding", ErrDetection, i)
		}
		detections = append(detections, model.Detection{
			Box: model.Box{
				Top:    f.Loc[0],
				Right:  f.Loc[1],
				Bottom: f.Loc[2],
				Left:   f.Loc[3],
			},
			Embedding: embedding.Embedding(f.Vec),
		})
	}
	return detections, nil
}
