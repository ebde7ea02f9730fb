package storage

import (
	"errors"
	"math"
	"testing"
)

func TestPageRange(t *testing.T) {
	cases := []struct {
		page, size int
		from, to   int
	}{
		{1, 10, 0, 9},
		{3, 20, 40, 59},
		{0, 10, 0, 9},
		{2, 0, 1, 1},
		{math.MaxInt, 10, math.MaxInt - 17, math.MaxInt - 8},
	}
	for _, tc := range cases {
		from, to := PageRange(tc.page, tc.size)
		if from != tc.from || to != tc.to {
			t.Fatalf("PageRange(%d, %d) = %d, %d; want %d, %d", tc.page, tc.size, from, to, tc.from, tc.to)
		}
	}
}

func TestRangeIsInclusive(t *testing.T) {
	q := From(TableProducts).Range(10, 19)
	if q.Offset != 10 || q.Limit != 10 {
		t.Fatalf("Range(10, 19) = offset %d limit %d", q.Offset, q.Limit)
	}
	if q.Empty {
		t.Fatal("Range(10, 19) marked empty")
	}
}

func TestRangeBackwardsIsEmpty(t *testing.T) {
	q := From(TableProducts).Range(-20, -11)
	if !q.Empty || q.Limit != 0 || q.Offset != 0 {
		t.Fatalf("Range(-20, -11) = offset %d limit %d empty %v", q.Offset, q.Limit, q.Empty)
	}
}

func TestCloneDoesNotShareFilters(t *testing.T) {
	base := From(TableMessages).Eq("receiver_id", "u1")
	scoped := base.Clone()
	scoped.Eq("sender_id", "u2").Or(And(Eq("read", false)))

	if len(base.Filters) != 1 || len(base.Any) != 0 {
		t.Fatalf("clone leaked into original: %+v", base)
	}
	if len(scoped.Filters) != 2 || len(scoped.Any) != 1 {
		t.Fatalf("clone missing filters: %+v", scoped)
	}
}

func TestCheckWriteRejectsAssignedAndUnknownColumns(t *testing.T) {
	products, err := Lookup(TableProducts)
	if err != nil {
		t.Fatal(err)
	}
	if err := products.CheckWrite(Row{"id": "x"}); !errors.Is(err, ErrReadOnlyColumn) {
		t.Fatalf("write to id: got %v", err)
	}
	if err := products.CheckWrite(Row{"colour": "red"}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("write to colour: got %v", err)
	}
	if err := products.CheckWrite(Row{"name": "Kale", "price": 1.0}); err != nil {
		t.Fatalf("valid write: %v", err)
	}
}

func TestCheckQueryValidatesEveryColumn(t *testing.T) {
	profiles, _ := Lookup(TableProfiles)

	q := From(TableProfiles).Or(And(ILike("nickname", "%a%")))
	if err := profiles.CheckQuery(q); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("unknown column in or-group: got %v", err)
	}
	q = From(TableProfiles).Order("age", true)
	if err := profiles.CheckQuery(q); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("unknown order column: got %v", err)
	}
	q = From(TableProfiles).Where(Filter{Column: "email", Op: OpILike, Value: 3})
	if err := profiles.CheckQuery(q); err == nil {
		t.Fatal("ilike with a non-string pattern should fail")
	}
}

func TestLookupUnknownTable(t *testing.T) {
	if _, err := Lookup("auth_identities"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("got %v", err)
	}
}

func TestEncodeOmitsUnsetPointers(t *testing.T) {
	type patch struct {
		Name  *string  `json:"name,omitempty"`
		Price *float64 `json:"price,omitempty"`
	}
	name := "Kale"
	row, err := Encode(patch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != 1 || row["name"] != "Kale" {
		t.Fatalf("Encode = %v", row)
	}
}
