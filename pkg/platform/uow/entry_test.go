package uow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyapp/pkg/platform/sentinel"
)

type Gadget struct {
	ID        int64     `db:"id,key,generated"`
	Name      string    `db:"name"`
	SerialNo  string    `db:"serial_no"`
	CreatedAt time.Time `db:"created_at,generated"`
	Note      *string   `db:"note"`
	scratch   string
	Ignored   string `db:"-"`
}

type legacyPart struct {
	Code  string `db:"code,key"`
	Label string `db:"label"`
}

func (legacyPart) TableName() string  { return "parts_v1" }
func (legacyPart) EntityKind() string { return "Part" }

type keyless struct {
	Name string `db:"name"`
}

func TestMetadata(t *testing.T) {
	e, err := NewEntry(&Gadget{}, nil, Added)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", e.Kind())
	assert.Equal(t, "gadgets", e.Table())

	var names []string
	for _, p := range e.Properties() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Id", "Name", "SerialNo", "CreatedAt", "Note"}, names)
	assert.True(t, e.IsKey("Id"))
	assert.True(t, e.IsKey("id"))
	assert.False(t, e.IsKey("Name"))

	p, err := NewEntry(legacyPart{Code: "x"}, nil, Added)
	require.NoError(t, err)
	assert.Equal(t, "Part", p.Kind())
	assert.Equal(t, "parts_v1", p.Table())

	_, err = NewEntry(keyless{}, nil, Added)
	assert.ErrorIs(t, err, ErrInvalidEntity)

	_, err = NewEntry(42, nil, Added)
	assert.ErrorIs(t, err, ErrInvalidEntity)

	var nilGadget *Gadget
	_, err = NewEntry(nilGadget, nil, Added)
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

func TestCaseConversion(t *testing.T) {
	assert.Equal(t, "tax_id", toSnakeCase("TaxID"))
	assert.Equal(t, "company_id", toSnakeCase("CompanyID"))
	assert.Equal(t, "http_server", toSnakeCase("HTTPServer"))
	assert.Equal(t, "TaxId", toPascalCase("tax_id"))
	assert.Equal(t, "CreateDate", toPascalCase("create_date"))
	assert.Equal(t, "Id", toPascalCase("id"))
}

func TestAddedEntryTemporaryValues(t *testing.T) {
	g := &Gadget{Name: "sprocket"}
	e, err := NewEntry(g, nil, Added)
	require.NoError(t, err)

	assert.True(t, e.IsTemporary("Id"))
	assert.True(t, e.IsTemporary("CreatedAt"))
	assert.False(t, e.IsTemporary("Name"))
	for _, p := range e.Properties() {
		assert.Nil(t, p.Original, p.Name)
	}

	require.NoError(t, e.Assign("Id", int64(12)))
	assert.False(t, e.IsTemporary("Id"))
	assert.Equal(t, int64(12), g.ID)
	v, ok := e.Value("Id")
	require.True(t, ok)
	assert.Equal(t, int64(12), v)
}

func TestExplicitGeneratedValueIsNotTemporary(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e, err := NewEntry(&Gadget{CreatedAt: created}, nil, Added)
	require.NoError(t, err)
	assert.False(t, e.IsTemporary("CreatedAt"))
	assert.True(t, e.IsTemporary("Id"))
}

func TestOnlyAddedEntriesHoldTemporaryValues(t *testing.T) {
	e, err := NewEntry(&Gadget{}, nil, Deleted)
	require.NoError(t, err)
	assert.False(t, e.IsTemporary("Id"))
}

func TestAssignConvertsDriverValues(t *testing.T) {
	g := &Gadget{}
	e, err := NewEntry(g, nil, Added)
	require.NoError(t, err)

	require.NoError(t, e.Assign("CreatedAt", "2026-03-04 05:06:07"))
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), g.CreatedAt)

	require.NoError(t, e.Assign("Note", []byte("hello")))
	require.NotNil(t, g.Note)
	assert.Equal(t, "hello", *g.Note)
	v, _ := e.Value("Note")
	assert.Equal(t, "hello", v)

	assert.Error(t, e.Assign("Missing", 1))
	assert.Error(t, e.Assign("Id", "not a number"))
}

func TestAssignByValueKeepsSnapshotOnly(t *testing.T) {
	g := Gadget{Name: "by value"}
	e, err := NewEntry(g, nil, Added)
	require.NoError(t, err)

	require.NoError(t, e.Assign("Id", int64(5)))
	v, _ := e.Value("Id")
	assert.Equal(t, int64(5), v)
	assert.Equal(t, int64(0), g.ID)
}

func TestDiscardGeneratedRestoresTemporaryKeys(t *testing.T) {
	g := &Gadget{Name: "retry"}
	e, err := NewEntry(g, nil, Added)
	require.NoError(t, err)

	require.NoError(t, e.Assign("Id", int64(9)))
	require.NoError(t, e.Assign("Id", int64(10)))
	e.DiscardGenerated()

	assert.Equal(t, int64(0), g.ID)
	assert.True(t, e.IsTemporary("Id"))
	assert.Equal(t, Added, e.State())
}

func TestModifiedEntrySnapshots(t *testing.T) {
	original := Gadget{ID: 1, Name: "old", SerialNo: "A"}
	current := Gadget{ID: 1, Name: "new", SerialNo: "A"}

	e, err := NewEntry(&current, original, Modified)
	require.NoError(t, err)
	for _, p := range e.Properties() {
		if p.Name == "Name" {
			assert.Equal(t, "old", p.Original)
			assert.Equal(t, "new", p.Current)
		}
	}

	_, err = NewEntry(&current, nil, Modified)
	assert.ErrorIs(t, err, ErrInvalidEntity)

	_, err = NewEntry(&current, legacyPart{}, Modified)
	assert.True(t, errors.Is(err, ErrInvalidEntity))
}

func TestAcceptChanges(t *testing.T) {
	g := &Gadget{Name: "x"}
	added, err := NewEntry(g, nil, Added)
	require.NoError(t, err)
	require.NoError(t, added.Assign("Id", int64(3)))

	added.AcceptChanges()
	assert.Equal(t, Unchanged, added.State())
	for _, p := range added.Properties() {
		assert.True(t, Equal(p.Original, p.Current), p.Name)
	}

	deleted, err := NewEntry(&Gadget{ID: 3}, nil, Deleted)
	require.NoError(t, err)
	deleted.AcceptChanges()
	assert.Equal(t, Detached, deleted.State())
}

func TestBatch(t *testing.T) {
	b := NewBatch()
	assert.False(t, b.HasChanges())

	_, err := b.Attach(&Gadget{ID: 1})
	require.NoError(t, err)
	assert.False(t, b.HasChanges())

	_, err = b.Add(&Gadget{Name: "a"})
	require.NoError(t, err)
	_, err = b.Update(&Gadget{ID: 2, Name: "b"}, Gadget{ID: 2, Name: "a"})
	require.NoError(t, err)
	_, err = b.Delete(&Gadget{ID: 3})
	require.NoError(t, err)
	_, err = b.Add(keyless{})
	require.Error(t, err)

	assert.Equal(t, 4, b.Len())
	assert.True(t, b.HasChanges())

	entries := b.Entries()
	entries[0] = nil
	assert.NotNil(t, b.Entries()[0])

	b.AcceptChanges()
	assert.False(t, b.HasChanges())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Added", Added.String())
	assert.Equal(t, "Unknown", State(99).String())
	assert.True(t, Deleted.IsMutation())
	assert.False(t, Unchanged.IsMutation())
}

func TestNewEntryRejectsUnknownState(t *testing.T) {
	_, err := NewEntry(&Gadget{Name: "x"}, nil, State(99))
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	_, err = NewEntry(&Gadget{Name: "x"}, nil, State(-1))
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	e, err := NewEntry(&Gadget{Name: "x"}, nil, Detached)
	require.NoError(t, err)
	assert.Equal(t, Detached, e.State())
}

func TestEqual(t *testing.T) {
	utc := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	paris := utc.In(time.FixedZone("CET", 3600))
	assert.True(t, Equal(utc, paris))
	assert.True(t, Equal(int64(1), int64(1)))
	assert.False(t, Equal(int64(1), 1))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal("a", nil))
}
