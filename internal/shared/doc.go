// Package shared holds helpers used by more than one package.
//
// The testutil subpackage captures slog output so tests can assert on the
// warnings and errors a component logs.
package shared
