package postgres

import (
	"reflect"
	"testing"

	"github.com/hongminglow/farmconnect/internal/storage"
)

func TestBuildSelect(t *testing.T) {
	q := storage.From(storage.TableMessages).
		Eq("receiver_id", "u1").
		Or(
			storage.And(storage.Eq("sender_id", "a")),
			storage.And(storage.Eq("sender_id", "b"), storage.Eq("read", nil)),
		).
		Order("created_at", false).
		Range(20, 39)

	sql, args := buildSelect(q)
	want := `SELECT * FROM "messages" WHERE "receiver_id" = $1 AND (("sender_id" = $2) OR ("sender_id" = $3 AND "read" IS NULL)) ORDER BY "created_at" DESC LIMIT $4 OFFSET $5`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"u1", "a", "b", 20, 20}) {
		t.Fatalf("args = %v", args)
	}

	countSQL, countArgs := buildCount(q)
	wantCount := `SELECT count(*) FROM "messages" WHERE "receiver_id" = $1 AND (("sender_id" = $2) OR ("sender_id" = $3 AND "read" IS NULL))`
	if countSQL != wantCount {
		t.Fatalf("count sql:\n got %s\nwant %s", countSQL, wantCount)
	}
	if len(countArgs) != 3 {
		t.Fatalf("count args = %v", countArgs)
	}
}

func TestBuildSelectEmptyRange(t *testing.T) {
	q := storage.From(storage.TableProducts).Range(5, 4)
	sql, args := buildSelect(q)
	want := `SELECT * FROM "products" LIMIT 0 OFFSET $1`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{5}) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildSelectProjectionAndOperators(t *testing.T) {
	q := storage.From(storage.TableProfiles).
		Select("id", "user_type").
		Where(storage.In("id", []string{"a", "b"}), storage.ILike("full_name", "%ami%"), storage.Neq("location", nil)).
		Take(1)

	sql, args := buildSelect(q)
	want := `SELECT "id", "user_type" FROM "profiles" WHERE "id" = ANY($1) AND "full_name" ILIKE $2 AND "location" IS NOT NULL LIMIT $3`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 3 || args[2] != 1 {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildInsertSortsColumns(t *testing.T) {
	sql, args := buildInsert(storage.TableProducts, storage.Row{"price": 1.5, "name": "Kale"})
	want := `INSERT INTO "products" ("name", "price") VALUES ($1, $2) RETURNING *`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"Kale", 1.5}) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildUpdateAndDelete(t *testing.T) {
	filters := []storage.Filter{storage.Eq("id", "x"), storage.Eq("user_id", "u")}

	sql, args := buildUpdate(storage.TablePriceAlerts, storage.Row{"active": false}, filters)
	want := `UPDATE "price_alerts" SET "active" = $1 WHERE "id" = $2 AND "user_id" = $3 RETURNING *`
	if sql != want {
		t.Fatalf("update sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{false, "x", "u"}) {
		t.Fatalf("update args = %v", args)
	}

	sql, args = buildDelete(storage.TableProducts, filters[:1])
	if sql != `DELETE FROM "products" WHERE "id" = $1` {
		t.Fatalf("delete sql = %s", sql)
	}
	if len(args) != 1 {
		t.Fatalf("delete args = %v", args)
	}
}
