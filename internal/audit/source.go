package audit

import "net/http"

// Source identifies the surface a change originated from. The set is closed;
// unrecognized values classify to SourceAPI because direct API calls are the
// only surface that sends arbitrary strings.
type Source string

const (
	SourceUI           Source = "ui"
	SourceAPI          Source = "api"
	SourceMCP          Source = "mcp"
	SourceAgent        Source = "agent"
	SourceDesktop      Source = "desktop"
	SourceCSVImport    Source = "csv_import"
	SourceGoogleSheets Source = "google_sheets"
	SourceSystem       Source = "system"
)

// SourceHeader is the request header clients use to declare their surface.
const SourceHeader = "X-Change-Source"

var knownSources = map[string]Source{
	string(SourceUI):           SourceUI,
	string(SourceAPI):          SourceAPI,
	string(SourceMCP):          SourceMCP,
	string(SourceAgent):        SourceAgent,
	string(SourceDesktop):      SourceDesktop,
	string(SourceCSVImport):    SourceCSVImport,
	string(SourceGoogleSheets): SourceGoogleSheets,
	string(SourceSystem):       SourceSystem,
}

// ClassifySource maps a raw label to a Source. Total: every input produces a
// valid Source, never an error.
func ClassifySource(raw string) Source {
	if s, ok := knownSources[raw]; ok {
		return s
	}
	return SourceAPI
}

// SourceFromRequest classifies the declared surface of an HTTP request.
func SourceFromRequest(r *http.Request) Source {
	return ClassifySource(r.Header.Get(SourceHeader))
}
