package pipeline

// ExternalLookup fetches the ambient execution context of the external CLI
// framework, when one is currently active. Returning nil means no context
// is available.
type ExternalLookup func() any

// defaultLookup is consulted by adapters whose pipeline configured no
// lookup of its own. CLI bindings install theirs during initialization;
// configure-before-use, like the rest of the process-wide state.
var defaultLookup ExternalLookup

// SetDefaultExternalLookup installs the process-wide ambient context
// lookup. A nil lookup disables it.
func SetDefaultExternalLookup(lookup ExternalLookup) {
	defaultLookup = lookup
}

// lookupExternal resolves the ambient context best-effort: a missing
// lookup or one that panics is treated as "no context available".
func lookupExternal(lookup ExternalLookup) (external any) {
	if lookup == nil {
		lookup = defaultLookup
	}
	if lookup == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			external = nil
		}
	}()
	return lookup()
}
