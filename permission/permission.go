// Package permission evaluates rule chains against requests. Rules return
// sentinel decisions: Deny rejects the request, Allow passes the rule, Skip
// (or nil) abstains. Every rule in the chain must pass or abstain for the
// request to proceed.
//
// Sync rules run inline in declared order and the first denial
// short-circuits the rest. Suspending rules are gathered concurrently and
// always drained to completion before their outcomes are inspected, so a
// denial never cancels a sibling check mid-flight.
package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/request"
)

// Decision sentinels returned by rules.
var (
	// Allow marks the rule as passed.
	Allow = errors.New("restflow/permission: allow")

	// Deny rejects the request.
	Deny = errors.New("restflow/permission: deny")

	// Skip abstains; equivalent to returning nil.
	Skip = errors.New("restflow/permission: skip")
)

// Allowf returns Allow wrapped with a formatted annotation.
func Allowf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), Allow)
}

// Denyf returns Deny wrapped with a formatted annotation. The annotation
// becomes the PermissionError detail.
func Denyf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), Deny)
}

// Skipf returns Skip wrapped with a formatted annotation.
func Skipf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), Skip)
}

// Rule decides inline whether a request may proceed.
type Rule interface {
	Check(r *request.Request) error
}

// ContextRule is the suspend-capable rule variant.
type ContextRule interface {
	CheckContext(ctx context.Context, r *request.Request) error
}

// ObjectRule decides inline whether a request may act on a resolved object.
type ObjectRule interface {
	CheckObject(r *request.Request, obj any) error
}

// ContextObjectRule is the suspend-capable object rule variant.
type ContextObjectRule interface {
	CheckObjectContext(ctx context.Context, r *request.Request, obj any) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(r *request.Request) error

// Check implements Rule.
func (f RuleFunc) Check(r *request.Request) error { return f(r) }

// ContextRuleFunc adapts a function to ContextRule.
type ContextRuleFunc func(ctx context.Context, r *request.Request) error

// CheckContext implements ContextRule.
func (f ContextRuleFunc) CheckContext(ctx context.Context, r *request.Request) error {
	return f(ctx, r)
}

// ModeOf classifies a rule for request-level checks.
func ModeOf(rule any) capability.Mode {
	if _, ok := rule.(ContextRule); ok {
		return capability.ModeSuspending
	}
	return capability.ModeSync
}

// ObjectModeOf classifies a rule for object-level checks.
func ObjectModeOf(rule any) capability.Mode {
	if _, ok := rule.(ContextObjectRule); ok {
		return capability.ModeSuspending
	}
	return capability.ModeSync
}

// Check evaluates a rule chain against the request.
func Check(ctx context.Context, rules []any, r *request.Request) error {
	return check(ctx, rules, ModeOf,
		func(rule any) (error, bool) {
			if t, ok := rule.(Rule); ok {
				return t.Check(r), true
			}
			return nil, false
		},
		func(rule any) (func(context.Context) error, bool) {
			if t, ok := rule.(ContextRule); ok {
				return func(ctx context.Context) error { return t.CheckContext(ctx, r) }, true
			}
			return nil, false
		})
}

// CheckObject evaluates the object-level side of a rule chain against a
// resolved object. Rules without an object-level side abstain.
func CheckObject(ctx context.Context, rules []any, r *request.Request, obj any) error {
	return check(ctx, rules, ObjectModeOf,
		func(rule any) (error, bool) {
			if t, ok := rule.(ObjectRule); ok {
				return t.CheckObject(r, obj), true
			}
			return nil, false
		},
		func(rule any) (func(context.Context) error, bool) {
			if t, ok := rule.(ContextObjectRule); ok {
				return func(ctx context.Context) error { return t.CheckObjectContext(ctx, r, obj) }, true
			}
			return nil, false
		})
}

func check(
	ctx context.Context,
	rules []any,
	classify func(any) capability.Mode,
	sync func(any) (error, bool),
	susp func(any) (func(context.Context) error, bool),
) error {
	for _, rule := range rules {
		assertRule(rule)
	}
	syncs, susps := capability.Partition(rules, classify)
	for _, rule := range syncs {
		decision, ok := sync(rule)
		if !ok {
			continue
		}
		if err := resolve(decision); err != nil {
			return err
		}
	}
	fns := make([]func(context.Context) error, 0, len(susps))
	for _, rule := range susps {
		fn, ok := susp(rule)
		if !ok {
			continue
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil
	}
	var first error
	for _, decision := range capability.Gather(ctx, fns...) {
		if err := resolve(decision); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// assertRule rejects chain entries that implement none of the rule
// interfaces. Rules with only the other level's side still count; they
// abstain at this one.
func assertRule(rule any) {
	switch rule.(type) {
	case Rule, ContextRule, ObjectRule, ContextObjectRule:
	default:
		panic(restflow.Contractf("unsupported permission rule type %T", rule))
	}
}

// resolve maps a rule decision to an outcome: nil for pass or abstain, an
// error for denial. Authentication failures pass through so the dispatch
// core can answer 401 instead of 403; unexpected errors propagate as
// internal failures.
func resolve(decision error) error {
	switch {
	case decision == nil:
		return nil
	case errors.Is(decision, Allow), errors.Is(decision, Skip):
		return nil
	case errors.Is(decision, Deny):
		if msg := denyDetail(decision); msg != "" {
			return restflow.NewPermissionError(msg)
		}
		return restflow.NewPermissionError("")
	case restflow.IsAuthentication(decision), restflow.IsPermissionDenied(decision):
		return decision
	}
	return decision
}

func denyDetail(decision error) string {
	if decision == Deny {
		return ""
	}
	msg := decision.Error()
	suffix := ": " + Deny.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return ""
}
