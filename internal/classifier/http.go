package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/mediscan/internal/httpclient"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
)

// maxResponseBytes bounds how much of a service reply is read.
const maxResponseBytes = 1 << 20

// HTTPConfig configures HTTPClassifier.
type HTTPConfig struct {
	BrainURL  string
	BreastURL string
	APIKey    string
	Timeout   time.Duration
}

// HTTPClassifier posts scans to the classification service. Safe for
// concurrent use.
type HTTPClassifier struct {
	client    *httpclient.Client
	endpoints map[knowledge.OrganType]string
	log       logger.Logger
}

// NewHTTPClassifier builds a classifier on client. A nil client creates one
// from cfg.
func NewHTTPClassifier(cfg HTTPConfig, client *httpclient.Client) *HTTPClassifier {
	if client == nil {
		client = httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			BearerToken:    cfg.APIKey,
		})
	}
	return &HTTPClassifier{
		client: client,
		endpoints: map[knowledge.OrganType]string{
			knowledge.OrganBrain:  cfg.BrainURL,
			knowledge.OrganBreast: cfg.BreastURL,
		},
		log: GetLogger(),
	}
}

// Classify uploads img as multipart field "file" and decodes the organ's
// response shape. There are no retries.
func (c *HTTPClassifier) Classify(ctx context.Context, organ knowledge.OrganType, img Image) (Output, error) {
	endpoint, ok := c.endpoints[organ]
	if !ok || endpoint == "" {
		return nil, classificationError(fmt.Errorf("no endpoint configured for organ %q", organ), organ, "classify")
	}

	filename := img.Filename
	if filename == "" {
		filename = "scan" + img.Extension()
	}

	start := time.Now()
	resp, err := c.client.PostMultipart(ctx, endpoint, []httpclient.FilePart{{
		Field:       "file",
		Filename:    filename,
		ContentType: img.ContentType,
		Data:        img.Data,
	}}, nil)
	if err != nil {
		return nil, classificationError(err, organ, "classify_request")
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classificationError(fmt.Errorf("reading response: %w", err), organ, "classify_read")
	}

	if !statusOK(resp.StatusCode) {
		return nil, classificationError(
			fmt.Errorf("service returned %d: %s", resp.StatusCode, snippet(body)), organ, "classify_status")
	}

	out, err := decodeOutput(organ, body)
	if err != nil {
		return nil, classificationError(err, organ, "classify_decode")
	}

	c.log.Debug("classification received",
		logger.String("organ", organ.String()),
		logger.String("label", out.PredictedLabel()),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

// decodeOutput parses a service reply in the shape that belongs to organ.
func decodeOutput(organ knowledge.OrganType, body []byte) (Output, error) {
	switch organ {
	case knowledge.OrganBrain:
		var out BrainOutput
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding brain response: %w", err)
		}
		if strings.TrimSpace(out.Label) == "" {
			return nil, fmt.Errorf("brain response has no prediction_label")
		}
		return out, nil
	case knowledge.OrganBreast:
		var out BreastOutput
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding breast response: %w", err)
		}
		if strings.TrimSpace(out.Label) == "" {
			return nil, fmt.Errorf("breast response has no prediction")
		}
		if out.Scores == nil {
			out.Scores = map[string]float64{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", knowledge.ErrUnknownOrgan, string(organ))
	}
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Close releases pooled connections.
func (c *HTTPClassifier) Close() {
	c.client.Close()
}

func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

var _ Classifier = (*HTTPClassifier)(nil)
