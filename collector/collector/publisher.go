package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/derktes/ir-signal-workbench/capture"
	"go.uber.org/zap"
)

type publishClient struct {
	serverURL string
	client    *http.Client
	logger    *zap.Logger
}

func newPublishClient(serverURL string, logger *zap.Logger) (*publishClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must be http or https", serverURL)
	}
	return &publishClient{
		serverURL: serverURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}, nil
}

func (pc *publishClient) publish(ctx context.Context, frame capture.TaggedFrame) error {
	taggedFrameJSON, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.serverURL, bytes.NewReader(taggedFrameJSON))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	response, err := pc.client.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("server answered %s", response.Status)
	}
	pc.logger.Debug("Published frame", zap.Int("status", response.StatusCode))
	return nil
}
