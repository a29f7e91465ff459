package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/queryviz/queryviz/internal/datasource"
)

func TestListTablesUsesDefaultSource(t *testing.T) {
	fake := &fakeToolkit{tables: map[string][]string{"default": {"orders", "sales"}}}
	h := newTestHandler(t, Dependencies{Toolkit: fake, DefaultDBKey: "default"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		DB     string   `json:"db"`
		Tables []string `json:"tables"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body.DB != "default" || len(body.Tables) != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestListTablesUnknownSourceReturns404(t *testing.T) {
	fake := &fakeToolkit{tables: map[string][]string{"default": {"sales"}}}
	h := newTestHandler(t, Dependencies{Toolkit: fake, DefaultDBKey: "default"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables?db=nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["error_code"] != "SOURCE_NOT_FOUND" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestGetSchemaFiltersByTable(t *testing.T) {
	fake := &fakeToolkit{schemas: map[string][]datasource.TableSchema{
		"default": {
			{Name: "orders", Columns: []datasource.ColumnInfo{{Name: "id", Type: "BIGINT"}}},
			{Name: "sales", Columns: []datasource.ColumnInfo{{Name: "region", Type: "TEXT"}}},
		},
	}}
	h := newTestHandler(t, Dependencies{Toolkit: fake, DefaultDBKey: "default"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema?table=sales", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Schemas []datasource.TableSchema `json:"schemas"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Schemas) != 1 || body.Schemas[0].Name != "sales" {
		t.Fatalf("schemas = %+v", body.Schemas)
	}
}

func TestGetSchemaUnknownTableReturns404(t *testing.T) {
	fake := &fakeToolkit{schemas: map[string][]datasource.TableSchema{
		"default": {{Name: "sales"}},
	}}
	h := newTestHandler(t, Dependencies{Toolkit: fake, DefaultDBKey: "default"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema?table=ghost", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetSchemaReturnsAllTables(t *testing.T) {
	fake := &fakeToolkit{schemas: map[string][]datasource.TableSchema{
		"default": {{Name: "orders"}, {Name: "sales"}},
	}}
	h := newTestHandler(t, Dependencies{Toolkit: fake, DefaultDBKey: "default"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Schemas []datasource.TableSchema `json:"schemas"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Schemas) != 2 {
		t.Fatalf("schemas = %+v", body.Schemas)
	}
}
