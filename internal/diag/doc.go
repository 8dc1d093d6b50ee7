// Package diag defines the diagnostic model shared by the IR parser, the
// inliner and the option loaders.
//
// A Diagnostic carries a severity, a numeric Code with a stable string form,
// a message and the source position it points at. Producers emit through a
// Reporter (usually a BagReporter) so they never depend on how diagnostics
// are stored or rendered; the CLI sorts the Bag and prints it with Fprint.
package diag
