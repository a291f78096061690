package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestMemberOrderingMatchesIDs(t *testing.T) {
	assert.Less(t, memberFor(9), memberFor(10))
	assert.Len(t, memberFor(1), 20)
}

func TestScoreIsMicroseconds(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 1500, time.UTC)
	assert.Equal(t, float64(ts.UnixMicro()), scoreFor(ts))
	assert.Equal(t, scoreFor(ts), scoreFor(ts.In(time.FixedZone("X", 3600))))
}

func TestKeys(t *testing.T) {
	s := &Store{prefix: defaultPrefix}
	WithPrefix("  custom  ")(s)
	assert.Equal(t, "custom:record:00000000000000000001", s.recordKey(memberFor(1)))
	assert.Equal(t, "custom:idx:actor:u1", s.actorIndex("u1"))
	assert.Equal(t, "custom:idx:entity:Company", s.kindIndex("Company"))

	WithPrefix("   ")(s)
	assert.Equal(t, "custom", s.prefix)
}
