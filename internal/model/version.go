package model

import "fmt"

// VersionToken identifies a commit/version in a source format's native
// numbering (an integer, a UUID, or a timestamp). Ord is
// the monotonic ordering key every format's adapter derives from its native
// token (commit sequence number, snapshot sequence number, or instant
// epoch-nanos) so that checkpoints can be compared across rounds regardless
// of the token's native representation.
type VersionToken struct {
	Raw string
	Ord int64
}

func NewVersionToken(raw string, ord int64) VersionToken {
	return VersionToken{Raw: raw, Ord: ord}
}

func (v VersionToken) String() string { return v.Raw }

func (v VersionToken) Less(o VersionToken) bool { return v.Ord < o.Ord }

func (v VersionToken) Equal(o VersionToken) bool { return v.Raw == o.Raw && v.Ord == o.Ord }

func (v VersionToken) Compare(o VersionToken) int {
	switch {
	case v.Ord < o.Ord:
		return -1
	case v.Ord > o.Ord:
		return 1
	default:
		return 0
	}
}

func (v VersionToken) IsZero() bool { return v.Raw == "" && v.Ord == 0 }

func (v VersionToken) GoString() string {
	return fmt.Sprintf("VersionToken{%s, %d}", v.Raw, v.Ord)
}
