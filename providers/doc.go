// Package providers holds the OAuth2 service template and, in its
// subpackages, the per-provider adapters built on top of it. Adapters stay
// thin: endpoints, scopes, signing mode, and capability flags.
package providers
