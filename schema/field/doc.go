// Package field provides the schema nodes that serializers are composed of.
//
// A node couples a wire name with decode (write path) and encode (read path)
// behavior, plus the declarative options that drive the validation engine:
// required, allow-null, defaults, and validators. Nodes are built with a
// fluent builder API and are immutable once bound to a parent schema.
//
// Every node role comes in two flavors. The plain interfaces (Decoder,
// Encoder, Validator) run inline and must not block; the context-taking
// variants (ContextDecoder, ContextEncoder, ContextValidator) may suspend on
// external I/O. A node's capability mode is derived from which flavors it and
// its validators implement, never from runtime probing.
package field
