package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/audit"
)

// Resolver answers permission checks by running the ordered resolution
// pipeline: inactive gate, direct grants, primary role capabilities and
// overrides, additional role assignments, then resource policies. It holds
// no mutable state; every check is a pure function of the store's state
// at read time.
type Resolver struct {
	store   Store
	catalog *Catalog
	sink    audit.Emitter
	logger  *slog.Logger
	metrics DecisionRecorder
	now     func() time.Time
}

// DecisionRecorder counts resolved decisions. Satisfied by
// observability.Metrics.
type DecisionRecorder interface {
	RecordDecision(allowed bool, source string)
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, catalog *Catalog, sink audit.Emitter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = audit.NopEmitter{}
	}
	return &Resolver{
		store:   store,
		catalog: catalog,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// WithMetrics attaches a decision counter. Safe to leave unset.
func (r *Resolver) WithMetrics(rec DecisionRecorder) *Resolver {
	r.metrics = rec
	return r
}

// Check resolves a single authorization question. Any store failure is
// converted to a deny; the resolver never fails open.
func (r *Resolver) Check(ctx context.Context, req CheckRequest) CheckResult {
	result := r.resolve(ctx, req)
	if r.metrics != nil {
		r.metrics.RecordDecision(result.Allowed, string(result.Source))
	}
	return result
}

func (r *Resolver) resolve(ctx context.Context, req CheckRequest) CheckResult {
	req.Resource = strings.ToLower(strings.TrimSpace(req.Resource))
	req.Action = Action(strings.ToLower(strings.TrimSpace(string(req.Action))))
	if req.Resource == "" || req.Action == "" {
		return CheckResult{Allowed: false, Reason: "resource and action are required", Source: SourceError}
	}

	principal, err := r.store.GetPrincipal(ctx, req.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			r.logger.Warn("authz: check for unknown principal", slog.String("principal", req.PrincipalID))
			return CheckResult{Allowed: false, Reason: "principal not found", Source: SourceError}
		}
		return r.failSafe(ctx, req, err)
	}

	// The inactive gate precedes every other stage.
	if !principal.Active {
		return CheckResult{Allowed: false, Reason: "inactive principal", Source: SourceInactive}
	}

	now := r.now()

	// Stage: direct grants.
	for _, grant := range principal.EffectiveGrants(now) {
		if grant.Resource == req.Resource && grant.Action == req.Action {
			return CheckResult{
				Allowed: true,
				Reason:  fmt.Sprintf("direct grant %s", CapabilityName(req.Resource, req.Action)),
				Source:  SourceDirectGrant,
			}
		}
	}

	// Stage: primary role, then additional assignments, first match wins.
	roles := principal.EffectiveRoles(now)
	for _, role := range roles {
		if result, matched, err := r.checkRole(ctx, role, req); err != nil {
			return r.failSafe(ctx, req, err)
		} else if matched {
			return result
		}
	}

	// Stage: resource policies, only for instance-scoped checks.
	if req.ResourceID != "" {
		policies, err := r.store.FindResourcePolicies(ctx, req.Resource, req.ResourceID)
		if err != nil {
			return r.failSafe(ctx, req, err)
		}
		for _, policy := range policies {
			if !policy.Matches(req.Action, principal.ID, roles, now) {
				continue
			}
			if policy.Effect == EffectAllow {
				return CheckResult{
					Allowed: true,
					Reason:  fmt.Sprintf("resource policy %s allows", policy.ID),
					Source:  SourcePolicy,
				}
			}
			result := CheckResult{
				Allowed: false,
				Reason:  fmt.Sprintf("resource policy %s denies", policy.ID),
				Source:  SourcePolicy,
			}
			r.emitDenial(ctx, req, result.Reason, audit.SeverityMedium)
			return result
		}
	}

	// Default deny.
	result := CheckResult{
		Allowed: false,
		Reason:  fmt.Sprintf("no permission for %s", CapabilityName(req.Resource, req.Action)),
		Source:  SourceNoMatch,
	}
	r.emitDenial(ctx, req, result.Reason, audit.SeverityMedium)
	return result
}

// checkRole evaluates the static capability set and the dynamic override
// for a single role. matched is false when the role says nothing about the
// resource/action pair.
func (r *Resolver) checkRole(ctx context.Context, role string, req CheckRequest) (CheckResult, bool, error) {
	if r.catalog.HasWildcard(role) {
		return CheckResult{
			Allowed: true,
			Reason:  fmt.Sprintf("role %s has wildcard access", role),
			Source:  SourceWildcard,
		}, true, nil
	}
	if r.catalog.Allows(role, req.Resource, req.Action) {
		return CheckResult{
			Allowed: true,
			Reason:  fmt.Sprintf("role %s capability %s", role, CapabilityName(req.Resource, req.Action)),
			Source:  SourceRoleCapability,
		}, true, nil
	}
	override, err := r.store.GetRoleOverride(ctx, role, req.Resource, req.Action)
	if err != nil {
		return CheckResult{}, false, err
	}
	if override != nil && override.Granted {
		return CheckResult{
			Allowed: true,
			Reason:  fmt.Sprintf("role %s override %s", role, CapabilityName(req.Resource, req.Action)),
			Source:  SourceRoleOverride,
		}, true, nil
	}
	return CheckResult{}, false, nil
}

// failSafe converts a store failure into a deny and records it with higher
// severity than an ordinary denial.
func (r *Resolver) failSafe(ctx context.Context, req CheckRequest, err error) CheckResult {
	r.logger.Error("authz: resolution failed",
		slog.String("principal", req.PrincipalID),
		slog.String("resource", req.Resource),
		slog.String("action", string(req.Action)),
		slog.Any("error", err))
	r.emitDenial(ctx, req, "resolution error", audit.SeverityHigh)
	return CheckResult{Allowed: false, Reason: "resolution error", Source: SourceError}
}

func (r *Resolver) emitDenial(ctx context.Context, req CheckRequest, reason string, severity audit.Severity) {
	r.sink.Security(ctx, audit.SecurityEvent{
		Type:        audit.EventUnauthorizedAccess,
		Severity:    severity,
		PrincipalID: req.PrincipalID,
		Resource:    req.Resource,
		Action:      string(req.Action),
		ResourceID:  req.ResourceID,
		Reason:      reason,
		At:          r.now(),
	})
}
