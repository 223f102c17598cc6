// Package restrict implements the restrictor of spec.md §4 glossary: a
// policy oracle answering allow/deny for (verb, object-name,
// attribute|operation, remote-host|address). Authentication itself is
// delegated to the caller (spec.md §1 Non-goals); the restrictor only
// consumes the remote-host/address strings the caller hands it.
package restrict

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/objname"
)

// Caller identifies the entity making the request, as handed down by the
// (out-of-scope) transport/auth layer.
type Caller struct {
	RemoteHost string
	RemoteAddr string
}

// Restrictor decides whether a (verb, name, attribute-or-operation, caller)
// tuple is permitted.
type Restrictor interface {
	// IsVerbAllowed reports whether verb may be used at all for this caller.
	IsVerbAllowed(verb domain.Verb, caller Caller) bool
	// IsAttributeAllowed reports whether attr on name may be read/written.
	IsAttributeAllowed(verb domain.Verb, name objname.Name, attr string, caller Caller) bool
	// IsOperationAllowed reports whether op on name may be invoked.
	IsOperationAllowed(name objname.Name, op string, caller Caller) bool
}

// AllowAll is the default restrictor: permits everything. Equivalent to the
// teacher's "community edition, no enforcement plugin = allow owner-only"
// fallback in internal/plugins/authorizer.go, simplified to "no restrictor
// configured = allow all" since this bridge has no ownership concept.
type AllowAll struct{}

func (AllowAll) IsVerbAllowed(domain.Verb, Caller) bool                           { return true }
func (AllowAll) IsAttributeAllowed(domain.Verb, objname.Name, string, Caller) bool { return true }
func (AllowAll) IsOperationAllowed(objname.Name, string, Caller) bool             { return true }

// DenyList is a simple restrictor that denies specific object-name patterns
// outright (used by scenario S5 in spec.md §8: "restrictor denying
// java.lang:type=Compilation").
type DenyList struct {
	Patterns []objname.Name
}

func (d DenyList) denied(name objname.Name) bool {
	for _, p := range d.Patterns {
		if name.Matches(p) {
			return true
		}
	}
	return false
}

func (d DenyList) IsVerbAllowed(domain.Verb, Caller) bool { return true }

func (d DenyList) IsAttributeAllowed(_ domain.Verb, name objname.Name, _ string, _ Caller) bool {
	return !d.denied(name)
}

func (d DenyList) IsOperationAllowed(name objname.Name, _ string, _ Caller) bool {
	return !d.denied(name)
}

// LoadDenyList reads one object-name pattern per line from path, ignoring
// blank lines and "#"-prefixed comments — the bundled policyLocation file
// format (spec.md §6).
func LoadDenyList(path string) ([]objname.Name, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("restrict: opening policy file: %w", err)
	}
	defer f.Close()

	var patterns []objname.Name
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, err := objname.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("restrict: parsing policy line %q: %w", line, err)
		}
		patterns = append(patterns, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("restrict: reading policy file: %w", err)
	}
	return patterns, nil
}
