package diffengine

import (
	"fmt"
	"strings"
)

// validate checks the package invariants for segs against the inputs and
// returns an error on the first violation.
func validate(original, edited string, segs []Segment) error {
	var origConcat, editConcat strings.Builder
	origOff := 0
	editOff := 0

	for i, s := range segs {
		if s.Text == "" {
			return fmt.Errorf("segment[%d]: empty Text", i)
		}
		if i > 0 && segs[i-1].Kind == s.Kind {
			return fmt.Errorf("segment[%d]: adjacent segments share kind %s", i, s.Kind)
		}
		if s.OriginalIndex != origOff {
			return fmt.Errorf("segment[%d]: OriginalIndex=%d, want %d", i, s.OriginalIndex, origOff)
		}
		if s.EditedIndex != editOff {
			return fmt.Errorf("segment[%d]: EditedIndex=%d, want %d", i, s.EditedIndex, editOff)
		}

		switch s.Kind {
		case KindEqual:
			origConcat.WriteString(s.Text)
			editConcat.WriteString(s.Text)
			origOff += len(s.Text)
			editOff += len(s.Text)
		case KindInsert:
			editConcat.WriteString(s.Text)
			editOff += len(s.Text)
		case KindDelete:
			origConcat.WriteString(s.Text)
			origOff += len(s.Text)
		default:
			return fmt.Errorf("segment[%d]: unknown kind %d", i, int(s.Kind))
		}
	}

	if origConcat.String() != original {
		return fmt.Errorf("segments do not reconstruct the original")
	}
	if editConcat.String() != edited {
		return fmt.Errorf("segments do not reconstruct the edited")
	}
	return nil
}
