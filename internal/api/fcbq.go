package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/valyala/fasthttp"
)

var ErrPageNotFound = errors.New("page not found")

// StatusError is returned for any non-200, non-404 upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("FCBQ error: %d for %s", e.Code, e.URL)
}

// FCBQClient downloads public pages of the Catalan basketball federation site.
type FCBQClient struct {
	baseURL   string
	userAgent string
	client    *fasthttp.Client
}

func NewFCBQClient(cfg *config.Config) *FCBQClient {
	return &FCBQClient{
		baseURL:   strings.TrimRight(cfg.FCBQBaseURL, "/"),
		userAgent: "el-visionat/1.0 (+https://github.com/Annabf7/el-visionat)",
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
			MaxResponseBodySize: 8 << 20,
		},
	}
}

func (c *FCBQClient) BaseURL() string {
	return c.baseURL
}

// RoundURL is the results page of one round of a competition.
func (c *FCBQClient) RoundURL(competitionID string, round int) string {
	return fmt.Sprintf("%s/competicions/resultats/%s/%d", c.baseURL, competitionID, round)
}

func (c *FCBQClient) GetRoundPage(ctx context.Context, competitionID string, round int) ([]byte, error) {
	return c.GetPage(ctx, c.RoundURL(competitionID, round))
}

// GetPage fetches an absolute URL, or a path relative to the base URL.
func (c *FCBQClient) GetPage(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}
	return doRequest(ctx, c, url)
}

func doRequest(ctx context.Context, client *FCBQClient, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", client.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ca,es;q=0.8")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, err
		}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrPageNotFound)
	default:
		return nil, &StatusError{URL: url, Code: resp.StatusCode()}
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of %s: %w", url, err)
	}
	// resp is returned to the pool on exit
	return append([]byte(nil), body...), nil
}
