package hidden

// Suffixes commonly appended by mesh and guest configurations; candidate
// lists for directed probing are built from sibling names plus these.
var candidateSuffixes = []string{
	"", "-Guest", "_Guest", " Guest", "-5G", "_5G", "-5GHz",
	"-IoT", "_IoT", "-EXT", "_EXT", "2",
}

// Candidates builds a bounded candidate-name list for directed probing of
// a hidden emitter, ordered most to least likely: the correlated sibling
// name first, then suffix variants of every named neighbor on the same
// channel. Already-tried names are skipped.
func (c *Classifier) Candidates(addr string, limit int) []string {
	view, ok := c.model.Snapshot(addr)
	if !ok {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] || c.Tried(addr, name) || len(out) >= limit {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	if name, _ := c.correlateSibling(view); name != "" {
		for _, suffix := range candidateSuffixes {
			add(name + suffix)
		}
	}
	for _, sibling := range c.model.NamedOnChannel(view.Channel) {
		if sibling.Address == view.Address {
			continue
		}
		for _, suffix := range candidateSuffixes {
			add(sibling.Name + suffix)
		}
	}
	return out
}
