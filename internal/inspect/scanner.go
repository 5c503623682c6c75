// Package inspect classifies text payloads as safe or threatening and
// detects and redacts embedded secrets. The gateway calls the scanner
// twice per forwarded request (inbound payload and outbound response)
// and treats both calls identically, so implementations must be
// deterministic and side-effect-free.
package inspect

import "github.com/ppiankov/agentward/internal/model"

// Scanner is the content-inspection contract the gateway depends on.
type Scanner interface {
	// ScanForThreats classifies text. Threats are returned in scan
	// order; the first entry is the one surfaced to callers.
	ScanForThreats(text string) model.ScanResult

	// ScanAndRedactSecrets replaces embedded secrets with placeholders.
	// When the input is valid JSON the redacted output stays valid JSON;
	// callers fall back to opaque text if re-parsing fails.
	ScanAndRedactSecrets(text string) model.SecretScanResult

	// SignatureHash derives the stable dedup key for a threat. The same
	// threat content always hashes to the same value.
	SignatureHash(t model.Threat) string
}
