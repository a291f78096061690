// Package storetest is the behaviour every audit.Store must share, run by
// each implementation's tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "companyapp/pkg/platform/audit"
)

// Factory returns an empty store for one test.
type Factory func(t *testing.T) audit.Store

// Run executes the shared store suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	suite.Run(t, &storeSuite{factory: factory})
}

type storeSuite struct {
	suite.Suite
	factory Factory
	store   audit.Store
	ctx     context.Context
	base    time.Time
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.factory(s.T())
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *storeSuite) record(actor, kind string, offset time.Duration) audit.Record {
	return audit.Record{
		ActorID:    actor,
		ActorName:  "name-" + actor,
		EntityKind: kind,
		Action:     audit.ActionAdded,
		Timestamp:  s.base.Add(offset),
		KeyValues:  `{"Id":1}`,
		Changes:    `{"Name":"Acme"}`,
	}
}

func (s *storeSuite) seed(records ...audit.Record) []audit.Record {
	s.Require().NoError(s.store.Append(s.ctx, records))
	return records
}

func (s *storeSuite) TestAppendAssignsIDs() {
	records := s.seed(
		s.record("u1", "Company", 0),
		s.record("u1", "Company", time.Second),
	)
	s.Positive(records[0].ID)
	s.Positive(records[1].ID)
	s.NotEqual(records[0].ID, records[1].ID)
}

func (s *storeSuite) TestRoundTrip() {
	in := s.record("u1", "Mission", 1234567*time.Microsecond)
	in.Action = audit.ActionModified
	in.Changes = `{"Old":{"Title":"a"},"New":{"Title":"b"}}`
	stored := s.seed(in)[0]

	out, err := s.store.Query(s.ctx, audit.Filter{}, 10)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	got := out[0]
	s.Equal(stored.ID, got.ID)
	s.Equal("u1", got.ActorID)
	s.Equal("name-u1", got.ActorName)
	s.Equal("Mission", got.EntityKind)
	s.Equal(audit.ActionModified, got.Action)
	s.True(in.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", in.Timestamp, got.Timestamp)
	s.JSONEq(in.KeyValues, got.KeyValues)
	s.JSONEq(in.Changes, got.Changes)
}

func (s *storeSuite) TestNewestFirst() {
	s.seed(
		s.record("u1", "Company", 0),
		s.record("u1", "Company", 2*time.Second),
		s.record("u1", "Company", time.Second),
	)
	out, err := s.store.Query(s.ctx, audit.Filter{}, 10)
	s.Require().NoError(err)
	s.Require().Len(out, 3)
	s.True(out[0].Timestamp.Equal(s.base.Add(2 * time.Second)))
	s.True(out[1].Timestamp.Equal(s.base.Add(time.Second)))
	s.True(out[2].Timestamp.Equal(s.base))
}

func (s *storeSuite) TestEqualTimestampsOrderByID() {
	records := s.seed(
		s.record("u1", "Company", 0),
		s.record("u1", "Company", 0),
	)
	out, err := s.store.Query(s.ctx, audit.Filter{}, 10)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(records[1].ID, out[0].ID)
	s.Equal(records[0].ID, out[1].ID)
}

func (s *storeSuite) TestFilters() {
	s.seed(
		s.record("u1", "Company", 0),
		s.record("u2", "Company", time.Minute),
		s.record("u1", "Mission", 2*time.Minute),
		s.record("u2", "Employee", 3*time.Minute),
	)

	cases := []struct {
		name   string
		filter audit.Filter
		want   int
	}{
		{"all", audit.Filter{}, 4},
		{"actor", audit.Filter{ActorID: "u1"}, 2},
		{"entity", audit.Filter{EntityKind: "Company"}, 2},
		{"actor and entity", audit.Filter{ActorID: "u2", EntityKind: "Company"}, 1},
		{"since inclusive", audit.Filter{Since: s.base.Add(time.Minute)}, 3},
		{"until exclusive", audit.Filter{Until: s.base.Add(time.Minute)}, 1},
		{"window", audit.Filter{Since: s.base.Add(time.Minute), Until: s.base.Add(3 * time.Minute)}, 2},
		{"no match", audit.Filter{ActorID: "nobody"}, 0},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			out, err := s.store.Query(s.ctx, tc.filter, 10)
			s.Require().NoError(err)
			s.Len(out, tc.want)
			for _, r := range out {
				s.True(tc.filter.Matches(r))
			}
		})
	}
}

func (s *storeSuite) TestLimit() {
	var records []audit.Record
	for i := 0; i < audit.DefaultQueryLimit+5; i++ {
		records = append(records, s.record("u1", "Company", time.Duration(i)*time.Second))
	}
	s.seed(records...)

	out, err := s.store.Query(s.ctx, audit.Filter{}, 3)
	s.Require().NoError(err)
	s.Len(out, 3)
	s.True(out[0].Timestamp.Equal(s.base.Add(time.Duration(audit.DefaultQueryLimit+4) * time.Second)))

	out, err = s.store.Query(s.ctx, audit.Filter{}, 0)
	s.Require().NoError(err)
	s.Len(out, audit.DefaultQueryLimit)
}

func (s *storeSuite) TestEmptyAppend() {
	s.NoError(s.store.Append(s.ctx, nil))
	out, err := s.store.Query(s.ctx, audit.Filter{}, 10)
	s.Require().NoError(err)
	s.Empty(out)
}
