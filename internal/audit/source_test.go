package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Source
	}{
		{name: "ui", input: "ui", want: SourceUI},
		{name: "api", input: "api", want: SourceAPI},
		{name: "mcp", input: "mcp", want: SourceMCP},
		{name: "agent", input: "agent", want: SourceAgent},
		{name: "desktop", input: "desktop", want: SourceDesktop},
		{name: "csv import", input: "csv_import", want: SourceCSVImport},
		{name: "google sheets", input: "google_sheets", want: SourceGoogleSheets},
		{name: "system", input: "system", want: SourceSystem},
		{name: "empty falls back to api", input: "", want: SourceAPI},
		{name: "unknown falls back to api", input: "zapier", want: SourceAPI},
		{name: "case sensitive", input: "UI", want: SourceAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifySource(tt.input))
		})
	}
}

func TestSourceFromRequest(t *testing.T) {
	t.Run("header present", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/properties", nil)
		r.Header.Set(SourceHeader, "csv_import")
		require.Equal(t, SourceCSVImport, SourceFromRequest(r))
	})

	t.Run("header absent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/properties", nil)
		require.Equal(t, SourceAPI, SourceFromRequest(r))
	})
}
