package service

// Delta partitions two identifier collections into the entries found only on
// one side and those shared. The three slices are pairwise disjoint and their
// union equals the union of the inputs. Order is unspecified and duplicates
// are collapsed.
type Delta struct {
	OnlyCurrent []string
	OnlyDesired []string
	Both        []string
}

// Reconcile computes the minimal membership changes between the current and
// desired identifier sets. Both inputs must already be normalised to the same
// namespace.
func Reconcile(current, desired []string) Delta {
	currentSet := toSet(current)
	desiredSet := toSet(desired)

	delta := Delta{
		OnlyCurrent: make([]string, 0, len(currentSet)),
		OnlyDesired: make([]string, 0, len(desiredSet)),
		Both:        make([]string, 0, len(currentSet)),
	}

	for id := range currentSet {
		if desiredSet[id] {
			delta.Both = append(delta.Both, id)
		} else {
			delta.OnlyCurrent = append(delta.OnlyCurrent, id)
		}
	}
	for id := range desiredSet {
		if !currentSet[id] {
			delta.OnlyDesired = append(delta.OnlyDesired, id)
		}
	}

	return delta
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
