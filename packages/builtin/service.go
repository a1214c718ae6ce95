package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

func (s *Steps) registerServices(r *steps.Registry) {
	r.Given("the service at $url is ready within $timeout", s.serviceReady)
	r.Given("the service at $url returns $status within $timeout", s.serviceReturns)
}

func (s *Steps) serviceReady(ctx context.Context, sc *steps.StepsContext, url string, timeout time.Duration) error {
	return s.waitForService(ctx, s.resolve(sc, strings.TrimSpace(url)), http.StatusOK, timeout)
}

func (s *Steps) serviceReturns(ctx context.Context, sc *steps.StepsContext, url string, status int, timeout time.Duration) error {
	return s.waitForService(ctx, s.resolve(sc, strings.TrimSpace(url)), status, timeout)
}

// waitForService polls url until it answers with status or timeout passes.
func (s *Steps) waitForService(parent context.Context, url string, status int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.logger.With("url", url)
	log.Debug("waiting for service", "status", status, "timeout", timeout)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var lastErr error
	lastStatus := 0
	for {
		got, err := s.probe(ctx, url)
		if err == nil && got == status {
			log.Debug("service is ready", "status", got)
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastStatus = got
		}

		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return err
			}
			if lastStatus != 0 {
				return fmt.Errorf("service %s not ready after %v: got status %d, expected %d", url, timeout, lastStatus, status)
			}
			return fmt.Errorf("service %s not ready after %v: %v", url, timeout, lastErr)
		case <-ticker.C:
		}
	}
}

func (s *Steps) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
