package permission_test

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/permission"
	"github.com/syssam/restflow/request"
)

func newReq(method string) *request.Request {
	return request.New(httptest.NewRequest(method, "/things/", nil))
}

func authedReq(method string) *request.Request {
	r := newReq(method)
	request.ForceAuthenticate(r, &request.User{ID: 1, Name: "ada"}, nil)
	return r
}

func TestCheckAllMustPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := authedReq("GET")

	require.NoError(t, permission.Check(ctx, []any{
		permission.AllowAny{},
		permission.IsAuthenticated{},
	}, r))

	err := permission.Check(ctx, []any{
		permission.AllowAny{},
		permission.DenyAll{},
	}, r)
	assert.True(t, restflow.IsPermissionDenied(err))
}

func TestSyncDenialShortCircuits(t *testing.T) {
	t.Parallel()

	ran := false
	err := permission.Check(context.Background(), []any{
		permission.DenyAll{},
		permission.RuleFunc(func(*request.Request) error {
			ran = true
			return permission.Allow
		}),
	}, newReq("GET"))
	assert.True(t, restflow.IsPermissionDenied(err))
	assert.False(t, ran)
}

func TestSuspendingRulesAllDrained(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	counting := permission.ContextRuleFunc(func(context.Context, *request.Request) error {
		ran.Add(1)
		return permission.Allow
	})
	denying := permission.ContextRuleFunc(func(context.Context, *request.Request) error {
		ran.Add(1)
		return permission.Denyf("nope")
	})

	err := permission.Check(context.Background(), []any{denying, counting, counting}, newReq("GET"))
	assert.True(t, restflow.IsPermissionDenied(err))
	assert.EqualError(t, err, "restflow: nope")
	assert.Equal(t, int32(3), ran.Load())
}

func TestSkipAbstains(t *testing.T) {
	t.Parallel()

	require.NoError(t, permission.Check(context.Background(), []any{
		permission.RuleFunc(func(*request.Request) error { return permission.Skip }),
		permission.RuleFunc(func(*request.Request) error { return nil }),
		permission.RuleFunc(func(*request.Request) error { return permission.Skipf("not mine") }),
	}, newReq("GET")))
}

func TestIsAuthenticated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	err := permission.Check(ctx, []any{permission.IsAuthenticated{}}, newReq("GET"))
	assert.True(t, restflow.IsAuthentication(err))

	require.NoError(t, permission.Check(ctx, []any{permission.IsAuthenticated{}}, authedReq("GET")))
}

func TestIsAuthenticatedOrReadOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rules := []any{permission.IsAuthenticatedOrReadOnly{}}

	require.NoError(t, permission.Check(ctx, rules, newReq("GET")))
	require.NoError(t, permission.Check(ctx, rules, authedReq("POST")))

	err := permission.Check(ctx, rules, newReq("POST"))
	assert.True(t, restflow.IsAuthentication(err))
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	err := permission.Check(ctx, []any{permission.IsAdmin{}}, authedReq("GET"))
	assert.True(t, restflow.IsPermissionDenied(err))
	assert.EqualError(t, err, "restflow: You do not have permission to perform this action.")

	r := newReq("GET")
	request.ForceAuthenticate(r, &request.User{ID: 1, Name: "root", Staff: true}, nil)
	require.NoError(t, permission.Check(ctx, []any{permission.IsAdmin{}}, r))
}

func TestNonRuleEntryPanics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := authedReq("GET")

	assert.Panics(t, func() {
		_ = permission.Check(ctx, []any{permission.AllowAny{}, struct{}{}}, r)
	})
	assert.Panics(t, func() {
		_ = permission.CheckObject(ctx, []any{struct{}{}}, r, map[string]any{})
	})

	// An object-only rule is still a rule; it abstains at the request level.
	require.NoError(t, permission.Check(ctx, []any{ownerRule{}}, r))
}

type ownerRule struct{}

func (ownerRule) CheckObjectContext(_ context.Context, r *request.Request, obj any) error {
	user, err := r.User(context.Background())
	if err != nil {
		return err
	}
	if obj.(map[string]any)["owner"] == user.Identifier() {
		return permission.Allow
	}
	return permission.Denyf("not the owner")
}

func TestCheckObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rules := []any{permission.AllowAny{}, ownerRule{}}
	r := authedReq("DELETE")

	require.NoError(t, permission.CheckObject(ctx, rules, r, map[string]any{"owner": "ada"}))

	err := permission.CheckObject(ctx, rules, r, map[string]any{"owner": "brian"})
	assert.True(t, restflow.IsPermissionDenied(err))
	assert.EqualError(t, err, "restflow: not the owner")
}
