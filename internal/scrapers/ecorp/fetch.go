package ecorp

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Fetcher downloads a single page over plain http, it is used to extract records
// from detail pages that are reachable without a browser (mirrors, saved copies
// behind a file server).
type Fetcher struct {
	http *resty.Client
}

func NewFetcher(tel telemetry.API) (Fetcher, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Fetcher{}, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", DefaultUserAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("ecorp", tel))

	return Fetcher{http: client}, nil
}

// Fetch returns the body of `url`, any non-2xx status is an error.
func (f Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetcher.Fetch", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	res, err := f.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("fetch %s: unexpected status %s", url, res.Status())
		span.SetStatus(codes.Error, "unexpected status")
		return "", err
	}
	return res.String(), nil
}
