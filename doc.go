// Package restflow is a REST framework with first-class support for mixed
// synchronous and suspending execution.
//
// Every polymorphic role in the framework (fields, validators, permission
// rules, throttles, authenticators, view actions) comes in two shapes: a
// plain synchronous one that runs inline, and a context-taking one that may
// block on external I/O and is executed on the cooperative path. Components
// of both shapes can be mixed freely within one schema or one view; the
// framework classifies each component at registration time and routes its
// invocation accordingly, with identical externally visible behavior on
// either path.
//
// The root package holds the error taxonomy shared by all subpackages.
// The main entry points live in the subpackages:
//
//   - capability: classification of components and the sync/suspending bridge
//   - schema/field, relation: declarative field schema nodes
//   - serializer: validation, representation, and the is-valid/save lifecycle
//   - view, viewset, router: request dispatch, action binding, and routing
//   - permission, throttle, authn: request checks
//   - pagination, storage: data-source collaborators
//   - resttest: request factory and test client
package restflow
