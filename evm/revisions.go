package evm

import (
	"encoding/json"
	"fmt"
)

// Revision is an enumeration of EVM specification revisions (aka hard forks).
// Revisions are ordered chronologically; later revisions include the
// semantics of all earlier ones unless explicitly re-priced or replaced.
type Revision int

const (
	Frontier Revision = iota
	Homestead
	Tangerine
	Spurious
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	Shanghai
	numRevisions int = iota
)

// NumRevisions returns the number of supported revisions.
func NumRevisions() int {
	return numRevisions
}

func (r Revision) String() string {
	switch r {
	case Frontier:
		return "Frontier"
	case Homestead:
		return "Homestead"
	case Tangerine:
		return "Tangerine"
	case Spurious:
		return "Spurious"
	case Byzantium:
		return "Byzantium"
	case Constantinople:
		return "Constantinople"
	case Petersburg:
		return "Petersburg"
	case Istanbul:
		return "Istanbul"
	case Berlin:
		return "Berlin"
	case London:
		return "London"
	case Shanghai:
		return "Shanghai"
	default:
		return fmt.Sprintf("Revision(%d)", int(r))
	}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	if r < Frontier || int(r) >= numRevisions {
		return nil, fmt.Errorf("invalid revision: %d", int(r))
	}
	return json.Marshal(r.String())
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i := 0; i < numRevisions; i++ {
		if Revision(i).String() == s {
			*r = Revision(i)
			return nil
		}
	}
	return fmt.Errorf("unknown revision: %s", s)
}

// ErrUnsupportedRevision is reported by interpreters asked to execute code
// under a revision they do not implement.
type ErrUnsupportedRevision struct {
	Revision Revision
}

func (e *ErrUnsupportedRevision) Error() string {
	return fmt.Sprintf("unsupported revision %d", e.Revision)
}
