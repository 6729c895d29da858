package comparison

import (
	"fmt"
	"strings"

	"ccdsync/internal/domain"
)

const maxDescriptorLen = 50

// FormatTuple renders a row for difference reports.
//
//	atom:       C1(C,0)
//	bond:       C1-C2(SING,N)
//	descriptor: SMILES(CACTVS 3.341): CC(C)=O
func FormatTuple(unit domain.ComparisonUnit, t []string) string {
	switch {
	case unit == domain.UnitAtom && len(t) == 3:
		return fmt.Sprintf("%s(%s,%s)", t[0], t[1], t[2])
	case unit == domain.UnitBond && len(t) == 4:
		return fmt.Sprintf("%s-%s(%s,%s)", t[0], t[1], t[2], t[3])
	case unit == domain.UnitDescriptor && len(t) == 4:
		return fmt.Sprintf("%s(%s %s): %s", t[0], t[1], t[2], truncate(t[3]))
	case unit == domain.UnitDescriptor && len(t) == 3:
		return fmt.Sprintf("(%s %s): %s", t[0], t[1], truncate(t[2]))
	}
	return strings.Join(t, ",")
}

// truncate shortens s to maxDescriptorLen runes.
func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxDescriptorLen {
		return string(r[:maxDescriptorLen-3]) + "..."
	}
	return s
}
