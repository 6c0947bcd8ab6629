package trigger

import (
	"fmt"
	"net/url"

	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"go.uber.org/zap"
)

// CallAsync calls a trigger URL asynchronously with a record_id query parameter.
// Used to notify external automation (e.g. the front desk's workflow tool) that
// a record was created. Failures are logged but don't block the operation.
// The returned channel is closed once the call finishes; callers may ignore it.
func CallAsync(triggerURL, recordID string, httpClient httpclient.Client) <-chan struct{} {
	done := make(chan struct{})
	if triggerURL == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		targetURL, err := buildURL(triggerURL, recordID)
		if err != nil {
			logger.Error("Invalid trigger URL",
				zap.Error(err),
				zap.String("record_id", recordID))
			return
		}

		logger.Info("Calling trigger URL",
			zap.String("url", targetURL),
			zap.String("record_id", recordID))

		resp, err := httpClient.Get(targetURL)
		if err != nil {
			logger.Error("Failed to call trigger URL",
				zap.Error(err),
				zap.String("url", targetURL),
				zap.String("record_id", recordID))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("Trigger URL called successfully",
				zap.String("url", targetURL),
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode))
		} else {
			logger.Warn("Trigger URL returned non-success status",
				zap.String("url", targetURL),
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode))
		}
	}()

	return done
}

func buildURL(triggerURL, recordID string) (string, error) {
	u, err := url.Parse(triggerURL)
	if err != nil {
		return "", fmt.Errorf("parse trigger url: %w", err)
	}
	q := u.Query()
	q.Set("record_id", recordID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
