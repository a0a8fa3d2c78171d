// Package access decides who may open a private conversation with whom.
//
// Contact is granted by an accepted friendship (Relationships) or a paid
// unlock (Ledger). Gate combines the two; Threads resolves the one
// conversation per pair once Gate approves.
package access

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("confide/access")

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
