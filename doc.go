// Package entrypoint binds a Go function's declared signature to a
// command-line interface.
//
// A decoration step analyzes the function's parameters, merges them with an
// ordered list of per-parameter specifications, and builds a parser and a
// dispatcher once. Each invocation then parses raw tokens into a flat
// named-value mapping and reconstructs a valid call from it, covering fixed
// positional, variadic positional, keyword-only, and variadic keyword
// parameters.
//
//	func greet(name string, excited bool) string { ... }
//
//	ep, err := entrypoint.New(greet, entrypoint.Config{
//		Description: "Print a greeting.",
//		Signature: []signature.Decl{
//			{Name: "name"},
//			{Name: "excited", Default: false, HasDefault: true},
//		},
//		Params: []entrypoint.Spec{
//			entrypoint.Arg("name", "who to greet"),
//			{Name: "excited", Help: "add an exclamation mark", Option: true},
//		},
//	})
//
// Both halves of the engine are pluggable: a Parser backend turns resolved
// specifications into a working command-line parser, and a Dispatcher maps
// parsed values back onto call arguments. Default implementations of each
// are provided.
//
// Errors fall into three disjoint classes. Usage errors (*UsageError,
// ErrHelp) describe the user's command line. Target errors are whatever the
// decorated function itself returns, propagated unchanged. Binding defects,
// meaning the decoration is inconsistent with the signature, panic with
// *BindingError; they can never be caused by command-line input.
package entrypoint
