// Package service contains the application services: profiles, sharing and invites,
// ownership transfer, cascading deletion, catalogs, campaigns, orders and exports.
package service

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/access"
	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/repository"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store repository.Store
	Authz *access.Authorizer
	Log   *zap.Logger
	Now   func() time.Time
	NewID func() uuid.UUID
}

func (d Deps) withDefaults() Deps {
	if d.Authz == nil {
		d.Authz = access.New(d.Store, d.Store, d.Store)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = func() uuid.UUID { return uuid.Must(uuid.NewV4()) }
	}
	return d
}

var tracer = otel.Tracer("github.com/and161185/scoutfund/internal/service")

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errs.CodeOf(err)))
	}
	span.End()
}

// Page size bounds for listings.
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// clampLimit applies the default page size and caps at MaxPageSize.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

func requireID(name string, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.Invalid("empty %s", name)
	}
	return nil
}

const maxNameLen = 120

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Invalid("empty %s", field)
	}
	if len([]rune(name)) > maxNameLen {
		return "", errs.Invalid("%s longer than %d characters", field, maxNameLen)
	}
	return name, nil
}
