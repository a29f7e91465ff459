package api

import (
	"context"
	"fmt"

	"github.com/queryviz/queryviz/internal/artifact"
	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/ingest"
	"github.com/queryviz/queryviz/internal/pipeline"
	"github.com/queryviz/queryviz/internal/toolkit"
)

type fakePipeline struct {
	lastRequest pipeline.Request
	response    pipeline.Response
}

func (f *fakePipeline) Run(_ context.Context, req pipeline.Request) pipeline.Response {
	f.lastRequest = req
	if f.response.SessionID == "" {
		f.response.SessionID = req.SessionID
	}
	return f.response
}

type fakeToolkit struct {
	tables      map[string][]string
	schemas     map[string][]datasource.TableSchema
	saveErr     error
	renderErr   error
	lastSaveSQL string
	lastOpts    toolkit.RenderOptions
	document    chart.Document
}

func (f *fakeToolkit) GetTables(_ context.Context, dbKey string) ([]string, error) {
	tables, ok := f.tables[dbKey]
	if !ok {
		return nil, fmt.Errorf("lookup source %q: %w", dbKey, datasource.ErrUnknownKey)
	}
	return tables, nil
}

func (f *fakeToolkit) GetSchema(_ context.Context, dbKey string) ([]datasource.TableSchema, error) {
	schemas, ok := f.schemas[dbKey]
	if !ok {
		return nil, fmt.Errorf("lookup source %q: %w", dbKey, datasource.ErrUnknownKey)
	}
	return schemas, nil
}

func (f *fakeToolkit) SaveQuery(_ context.Context, sessionID, dbKey, sqlText string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.lastSaveSQL = sqlText
	return "q-1", nil
}

func (f *fakeToolkit) RenderSavedQuery(_ context.Context, sessionID, queryID, toolCallID string, opts toolkit.RenderOptions) (chart.Document, error) {
	if f.renderErr != nil {
		return chart.Document{}, f.renderErr
	}
	f.lastOpts = opts
	doc := f.document
	doc.OriginCallID = toolCallID
	return doc, nil
}

type fakeArtifacts struct {
	queries []artifact.SavedQuery
	charts  []artifact.SavedChart
	listErr error
}

func (f *fakeArtifacts) ListQueries(_ context.Context, sessionID string) ([]artifact.SavedQuery, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.queries, nil
}

func (f *fakeArtifacts) ListCharts(_ context.Context, sessionID string) ([]artifact.SavedChart, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.charts, nil
}

type fakeLoader struct {
	lastFormat    string
	lastTable     string
	lastObjectKey string
	lastBody      []byte
	loadErr       error
}

func (f *fakeLoader) Load(_ context.Context, dbKey, table, format string, data []byte) (ingest.Result, error) {
	if f.loadErr != nil {
		return ingest.Result{}, f.loadErr
	}
	f.lastTable = table
	f.lastFormat = format
	f.lastBody = data
	return ingest.Result{Table: table, Columns: []string{"region"}, RowCount: 1}, nil
}

func (f *fakeLoader) LoadFromObject(_ context.Context, dbKey, table, objectKey string) (ingest.Result, error) {
	if f.loadErr != nil {
		return ingest.Result{}, f.loadErr
	}
	f.lastTable = table
	f.lastObjectKey = objectKey
	return ingest.Result{Table: table, Columns: []string{"region"}, RowCount: 1, ObjectKey: objectKey}, nil
}
