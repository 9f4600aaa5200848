package ecorp

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("gaentity.scrapers.ecorp")

var meter = otel.Meter("gaentity.scrapers.ecorp")

var attemptCounter, _ = meter.Int64Counter(
	"ecorp.attempts",
	metric.WithDescription("browser session attempts, by outcome"),
)

var challengeWait, _ = meter.Float64Histogram(
	"ecorp.challenge_wait",
	metric.WithUnit("s"),
	metric.WithDescription("time until the anti-bot challenge cleared"),
)
