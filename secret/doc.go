// Package secret resolves credentials referenced from configuration.
//
// A value of the form
//
//	secretref:<provider>:<ref>
//
// is replaced by what the named Provider returns for ref. Two providers
// ship with the package: "env" reads an environment variable and "file"
// reads a file (trailing newlines trimmed), which covers mounted
// container secrets. References may also appear inline, e.g.
// "Bearer secretref:env:TOKEN".
//
// Before reference resolution every value goes through ExpandEnvStrict,
// so ${VAR} fails loudly when VAR is unset instead of expanding to "".
package secret
