package facility

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EntityKind tags locally minted ids with the level they belong to.
type EntityKind string

const (
	KindDepartment EntityKind = "dept"
	KindWard       EntityKind = "ward"
	KindRoom       EntityKind = "room"
	KindBed        EntityKind = "bed"
)

const localIDPrefix = "local-"

// NewLocalID mints a session-unique id for a newly created entity. The
// local- prefix distinguishes it from server-assigned ids so the save path
// can tell new entities from existing ones.
func NewLocalID(kind EntityKind) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%s%s-%d-%s", localIDPrefix, kind, time.Now().UnixNano(), hex.EncodeToString(suffix[:]))
}

// IsLocalID reports whether id was minted locally during this session.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
