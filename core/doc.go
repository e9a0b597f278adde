// Package core contains the trust session domain: the manager, token
// lifecycle, account-data watching, and listener fan-out. Lower-level
// adapters must depend on this package; core must not depend on transport
// or storage adapters.
package core
