// Package core contains the canonical social account domain: accounts,
// service descriptors, the account store contract, signed requests, and the
// per-provider service runtime. Lower-level adapters must depend on this
// package; core must not depend on provider-specific or storage-specific
// adapters.
package core
